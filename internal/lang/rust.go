package lang

func init() {
	Register(&Spec{
		Language:        Rust,
		FileExtensions:  []string{".rs"},
		ModuleNodeTypes: []string{"source_file", "mod_item"},
		FunctionNodeTypes: []string{
			"function_item", "function_signature_item", "closure_expression",
		},
		ClassNodeTypes: []string{
			"struct_item", "enum_item", "union_item", "trait_item", "impl_item",
		},
		CallNodeTypes:     []string{"call_expression", "macro_invocation"},
		ImportNodeTypes:   []string{"use_declaration", "extern_crate_declaration"},
		ImportFromTypes:   []string{"use_declaration"},
		PackageIndicators: []string{"Cargo.toml"},

		DecisionNodeTypes: []string{
			"if_expression", "if_let_expression", "for_expression", "while_expression",
			"while_let_expression", "match_arm",
		},
		DecisionOperatorTypes: []string{"binary_expression"},
		DecisionOperatorTexts: []string{"&&", "||"},

		StdlibPrefixes: rustStdlib,
	})
}

var rustStdlib = map[string]bool{
	"std": true, "core": true, "alloc": true, "proc_macro": true, "test": true,
}
