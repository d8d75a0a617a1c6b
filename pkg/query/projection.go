// Package query provides SQL query building utilities with projection mapping.
package query

import (
	"fmt"
	"strings"
)

type join struct {
	kind      string
	table     string
	alias     string
	condition string
}

// ProjectionMap maps view property names to qualified column references (alias.column).
// It defines the table, alias, joins, and column mappings for SQL query construction.
type ProjectionMap struct {
	schema     string
	table      string
	alias      string
	current    string
	joins      []join
	columns    map[string]string
	columnList []string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:     schema,
		table:      table,
		alias:      alias,
		current:    alias,
		columns:    make(map[string]string),
		columnList: make([]string, 0),
	}
}

// Project adds a column mapping from database column to view property name.
// Columns added after a Join call are qualified with the joined table's alias.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := fmt.Sprintf("%s.%s", p.current, column)
	p.columns[viewName] = qualified
	p.columnList = append(p.columnList, qualified)
	return p
}

// Join adds a joined table; subsequent Project calls qualify columns with its alias.
func (p *ProjectionMap) Join(schema, table, alias, kind, condition string) *ProjectionMap {
	p.joins = append(p.joins, join{
		kind:      kind,
		table:     fmt.Sprintf("%s.%s", schema, table),
		alias:     alias,
		condition: condition,
	})
	p.current = alias
	return p
}

// Alias returns the base table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns the full FROM fragment: base table with alias plus any joins.
func (p *ProjectionMap) From() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s.%s %s", p.schema, p.table, p.alias)
	for _, j := range p.joins {
		fmt.Fprintf(&sb, " %s %s %s ON %s", j.kind, j.table, j.alias, j.condition)
	}
	return sb.String()
}

// Column returns the qualified column for a view property name, or the input if not mapped.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.columns[viewName]; ok {
		return col
	}
	return viewName
}

// Columns returns all mapped columns as a comma-separated string.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}

// ColumnList returns all mapped columns as a slice.
func (p *ProjectionMap) ColumnList() []string {
	return p.columnList
}
