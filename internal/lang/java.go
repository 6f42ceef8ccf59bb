package lang

func init() {
	Register(&Spec{
		Language:          Java,
		FileExtensions:    []string{".java"},
		ModuleNodeTypes:   []string{"program"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes: []string{
			"class_declaration", "interface_declaration", "enum_declaration",
			"annotation_type_declaration", "record_declaration",
		},
		FieldNodeTypes:  []string{"field_declaration"},
		CallNodeTypes:   []string{"method_invocation"},
		ImportNodeTypes: []string{"import_declaration"},
		ImportFromTypes: []string{"import_declaration"},

		DecisionNodeTypes: []string{
			"if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_expression", "switch_block_statement_group",
			"catch_clause", "ternary_expression",
		},
		DecisionOperatorTypes: []string{"binary_expression"},
		DecisionOperatorTexts: []string{"&&", "||"},
		DecoratorNodeTypes:    []string{"marker_annotation", "annotation"},
		PackageIndicators:     []string{"pom.xml", "build.gradle"},

		StdlibPrefixes: javaStdlib,
	})
}

var javaStdlib = map[string]bool{
	"java": true, "javax": true, "jdk": true, "sun": true,
}
