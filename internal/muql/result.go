package muql

// Result is the tabular output of a MUQL query.
type Result struct {
	Columns          []string         `json:"columns"`
	Rows             []map[string]any `json:"rows"`
	RowCount         int              `json:"row_count"`
	ExecutionTimeMs  float64          `json:"execution_time_ms"`
	Error            string           `json:"error,omitempty"`
}
