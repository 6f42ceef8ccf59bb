package muql

import "fmt"

// SyntaxError is returned for unparseable input.
type SyntaxError struct {
	Offset   int
	Expected string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("muql: syntax error at offset %d: expected %s", e.Offset, e.Expected)
}

// UnknownTable names a table that does not exist in the query surface.
type UnknownTable struct {
	Name string
}

func (e *UnknownTable) Error() string {
	return fmt.Sprintf("muql: unknown table %q", e.Name)
}

// UnknownColumn names a column that does not exist on the resolved table.
type UnknownColumn struct {
	Name string
}

func (e *UnknownColumn) Error() string {
	return fmt.Sprintf("muql: unknown column %q", e.Name)
}

// UnresolvedNode is returned when a <node-ref> matches nothing.
type UnresolvedNode struct {
	Ref string
}

func (e *UnresolvedNode) Error() string {
	return fmt.Sprintf("muql: unresolved node reference %q", e.Ref)
}

// QueryTimeout is returned when a query exceeds its execution deadline.
type QueryTimeout struct {
	Query string
}

func (e *QueryTimeout) Error() string {
	return fmt.Sprintf("muql: query timed out: %s", e.Query)
}
