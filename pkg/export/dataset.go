package export

import "fmt"

// Dataset is tabular content shared by every renderer. Rows are keyed by
// header so columns can be reordered without touching producers.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	Footer  string
}

// Record returns row values in header order.
func (d Dataset) Record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}
