package lang

func init() {
	Register(&Spec{
		Language:          Go,
		FileExtensions:    []string{".go"},
		ModuleNodeTypes:   []string{"source_file"},
		FunctionNodeTypes: []string{"function_declaration", "method_declaration"},
		ClassNodeTypes:    []string{"type_spec"},
		FieldNodeTypes:    []string{"field_declaration"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import_spec"},
		ImportFromTypes:   []string{"import_spec"},

		DecisionNodeTypes: []string{
			"if_statement", "for_statement", "expression_switch_statement",
			"type_switch_statement", "select_statement", "communication_case",
			"expression_case", "type_case", "default_case",
		},
		DecisionOperatorTypes: []string{"binary_expression"},
		DecisionOperatorTexts: []string{"&&", "||"},
		PackageIndicators:     []string{"go.mod"},

		StdlibPrefixes: goStdlib,
	})
}

var goStdlib = map[string]bool{
	"fmt": true, "os": true, "io": true, "strings": true, "strconv": true,
	"time": true, "sync": true, "context": true, "errors": true, "sort": true,
	"net": true, "net/http": true, "encoding/json": true, "bytes": true,
	"bufio": true, "path": true, "path/filepath": true, "regexp": true,
	"reflect": true, "runtime": true, "testing": true, "math": true,
	"crypto": true, "crypto/sha256": true, "database/sql": true, "log": true,
	"log/slog": true, "container/list": true, "unicode": true, "flag": true,
}
