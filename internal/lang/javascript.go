package lang

func init() {
	Register(&Spec{
		Language:        JavaScript,
		FileExtensions:  []string{".js", ".mjs", ".cjs"},
		ModuleNodeTypes: []string{"program"},
		FunctionNodeTypes: []string{
			"function_declaration", "generator_function_declaration",
			"function_expression", "arrow_function", "method_definition",
		},
		ClassNodeTypes:  []string{"class_declaration", "class"},
		CallNodeTypes:   []string{"call_expression"},
		ImportNodeTypes: []string{"import_statement"},
		ImportFromTypes: []string{"import_statement"},

		DecisionNodeTypes: []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement",
			"do_statement", "switch_case", "catch_clause", "ternary_expression",
		},
		DecisionOperatorTypes: []string{"binary_expression"},
		DecisionOperatorTexts: []string{"&&", "||", "??"},
		DecoratorNodeTypes:    []string{"decorator"},
		PackageIndicators:     []string{"package.json"},

		StdlibPrefixes: jsStdlib,
	})

	Register(&Spec{
		Language:        JSX,
		FileExtensions:  []string{".jsx"},
		ModuleNodeTypes: []string{"program"},
		FunctionNodeTypes: []string{
			"function_declaration", "generator_function_declaration",
			"function_expression", "arrow_function", "method_definition",
		},
		ClassNodeTypes:  []string{"class_declaration", "class"},
		CallNodeTypes:   []string{"call_expression"},
		ImportNodeTypes: []string{"import_statement"},
		ImportFromTypes: []string{"import_statement"},

		DecisionNodeTypes: []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement",
			"do_statement", "switch_case", "catch_clause", "ternary_expression",
		},
		DecisionOperatorTypes: []string{"binary_expression"},
		DecisionOperatorTexts: []string{"&&", "||", "??"},
		DecoratorNodeTypes:    []string{"decorator"},
		PackageIndicators:     []string{"package.json"},

		StdlibPrefixes: jsStdlib,
	})
}

var jsStdlib = map[string]bool{
	"fs": true, "path": true, "http": true, "https": true, "os": true,
	"util": true, "events": true, "stream": true, "crypto": true, "url": true,
	"querystring": true, "child_process": true, "buffer": true, "assert": true,
	"net": true, "dns": true, "readline": true, "zlib": true, "timers": true,
	"process": true, "module": true,
}
