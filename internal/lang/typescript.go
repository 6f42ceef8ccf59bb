package lang

func init() {
	Register(&Spec{
		Language:       TypeScript,
		FileExtensions: []string{".ts"},
		ModuleNodeTypes: []string{"program"},
		FunctionNodeTypes: []string{
			"function_declaration", "generator_function_declaration",
			"function_expression", "arrow_function", "method_definition",
			"function_signature",
		},
		ClassNodeTypes: []string{
			"class_declaration", "class", "abstract_class_declaration",
			"enum_declaration", "interface_declaration", "type_alias_declaration",
		},
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
		PackageIndicators:     []string{"package.json", "tsconfig.json"},

		StdlibPrefixes: jsStdlib,
	})

	Register(&Spec{
		Language:       TSX,
		FileExtensions: []string{".tsx"},
		ModuleNodeTypes: []string{"program"},
		FunctionNodeTypes: []string{
			"function_declaration", "generator_function_declaration",
			"function_expression", "arrow_function", "method_definition",
			"function_signature",
		},
		ClassNodeTypes: []string{
			"class_declaration", "class", "abstract_class_declaration",
			"enum_declaration", "interface_declaration", "type_alias_declaration",
		},
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
		PackageIndicators:     []string{"package.json", "tsconfig.json"},

		StdlibPrefixes: jsStdlib,
	})
}
