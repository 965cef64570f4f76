package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(0, 0)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pageBounds(3, 10)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)

	limit, _ = pageBounds(1, 500)
	assert.Equal(t, 20, limit)
}

func TestOrderByFallsBackOnUnknownInput(t *testing.T) {
	allowed := map[string]string{"name": "d.name", "id": "d.id"}
	assert.Equal(t, "d.id DESC", orderBy(allowed, "id", "name", "desc", "ASC"))
	assert.Equal(t, "d.name ASC", orderBy(allowed, "name; DROP TABLE", "name", "sideways", "ASC"))
}

func TestWhereBuilderNumbersPlaceholders(t *testing.T) {
	var where whereBuilder
	assert.Empty(t, where.clause())

	where.add("a = $%d", 1)
	where.addSearch("x", "b", "c")
	where.add("d = $%d", 2)

	assert.Equal(t, " WHERE a = $1 AND (b ILIKE $2 OR c ILIKE $2) AND d = $3", where.clause())
	assert.Equal(t, []interface{}{1, "%x%", 2}, where.args)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrap: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
