package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// whereBuilder accumulates positional conditions.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(format string, value interface{}) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

// addSearch matches the same placeholder against several columns.
func (w *whereBuilder) addSearch(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	w.args = append(w.args, "%"+term+"%")
	pos := len(w.args)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, pos)
	}
	w.conditions = append(w.conditions, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func orderBy(allowed map[string]string, sortBy, fallback, order, fallbackOrder string) string {
	column := allowed[sortBy]
	if column == "" {
		column = allowed[fallback]
	}
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		order = fallbackOrder
	}
	return column + " " + order
}

func pageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
