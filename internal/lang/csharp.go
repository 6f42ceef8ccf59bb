package lang

func init() {
	Register(&Spec{
		Language:        CSharp,
		FileExtensions:  []string{".cs"},
		ModuleNodeTypes: []string{"compilation_unit"},
		FunctionNodeTypes: []string{
			"method_declaration", "constructor_declaration", "destructor_declaration",
			"local_function_statement", "lambda_expression", "anonymous_method_expression",
			"property_declaration", // C# properties are emitted as attributes (see §4.B),
			// but getter/setter bodies still need a decision-node walk for complexity.
		},
		ClassNodeTypes: []string{
			"class_declaration", "struct_declaration", "enum_declaration",
			"interface_declaration", "record_declaration",
		},
		FieldNodeTypes:  []string{"field_declaration", "property_declaration"},
		CallNodeTypes:   []string{"invocation_expression"},
		ImportNodeTypes: []string{"using_directive"},
		ImportFromTypes: []string{"using_directive"},

		DecisionNodeTypes: []string{
			"if_statement", "for_statement", "foreach_statement", "while_statement",
			"do_statement", "switch_expression_arm", "switch_section", "catch_clause",
			"conditional_expression",
		},
		DecisionOperatorTypes: []string{"binary_expression"},
		DecisionOperatorTexts: []string{"&&", "||", "??"},
		DecoratorNodeTypes:    []string{"attribute"},
		PackageIndicators:     []string{"*.csproj"},

		StdlibPrefixes: csharpStdlib,
	})
}

var csharpStdlib = map[string]bool{
	"System": true, "Microsoft": true,
}
