package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset(rows int) Dataset {
	data := Dataset{
		Title:   "Roster",
		Headers: []string{"Student", "Course", "Grade"},
		Footer:  "generated for tests",
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"Grade":   fmt.Sprintf("%d", i%20),
			"Student": fmt.Sprintf("Student %d", i),
			"Course":  "CS101",
		})
	}
	return data
}

func TestCSVExporterRendersInHeaderOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset(2))
	require.NoError(t, err)
	assert.Equal(t, "Student,Course,Grade\nStudent 0,CS101,0\nStudent 1,CS101,1\n", string(out))
}

func TestCSVExporterQuotesValues(t *testing.T) {
	data := Dataset{Headers: []string{"Name"}, Rows: []map[string]string{{"Name": "Doe, Jane"}}}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Name\n\"Doe, Jane\"\n", string(out))
}

func TestCSVExporterOptions(t *testing.T) {
	data := Dataset{Headers: []string{"Name", "Grade"}, Rows: []map[string]string{{"Name": "Zoë", "Grade": "12,5"}}}
	out, err := NewCSVExporter(WithByteOrderMark(), WithDelimiter(';')).Render(data)
	require.NoError(t, err)
	assert.Equal(t, "\xef\xbb\xbfName;Grade\nZoë;12,5\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersMultiplePages(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset(120))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterWideTable(t *testing.T) {
	data := Dataset{Headers: []string{"A", "B", "C", "D", "E", "F", "G"}}
	data.Rows = []map[string]string{{"A": "1", "G": "7"}}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
