package models

// ColumnDef describes one column of an introspected table.
type ColumnDef struct {
	Name     string
	DataType string
	Nullable bool
	Comment  string // human-authored column comment, empty if none
}

// TableDef is the DDL snapshot of one table (spec §4.3, Table
// Definition). Columns are always ordered by ordinal position so that
// two independent refreshes of the same unchanged table render
// byte-identical DDL.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}
