package store

import (
	"fmt"
	"strings"
)

// updateSet accumulates (column, value) pairs for a partial UPDATE.
type updateSet struct {
	columns []string
	args    []any
}

func (u *updateSet) set(column string, value any) {
	u.columns = append(u.columns, column)
	u.args = append(u.args, value)
}

// setNullable stores NULL when value points at an empty string.
func (u *updateSet) setNullable(column string, value *string) {
	if value != nil && strings.TrimSpace(*value) == "" {
		u.set(column, nil)
		return
	}
	u.set(column, value)
}

func (u *updateSet) empty() bool {
	return len(u.columns) == 0
}

// build renders the statement. updated_at is always bumped.
func (u *updateSet) build(table, keyColumn string, key any, returning string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", table)
	for i, column := range u.columns {
		fmt.Fprintf(&b, "%s = $%d, ", column, i+1)
	}
	args := append(append([]any(nil), u.args...), key)
	fmt.Fprintf(&b, "updated_at = NOW() WHERE %s = $%d", keyColumn, len(args))
	if returning != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(returning)
	}
	return b.String(), args
}
