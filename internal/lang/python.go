package lang

func init() {
	Register(&Spec{
		Language:          Python,
		FileExtensions:    []string{".py"},
		ModuleNodeTypes:   []string{"module"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{"class_definition"},
		CallNodeTypes:     []string{"call"},
		ImportNodeTypes:   []string{"import_statement"},
		ImportFromTypes:   []string{"import_from_statement"},

		DecisionNodeTypes: []string{
			"if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "conditional_expression", "with_statement",
		},
		DecisionOperatorTypes: []string{"boolean_operator"},
		DecisionOperatorTexts: []string{"and", "or"},
		DecoratorNodeTypes:    []string{"decorator"},
		PackageIndicators:     []string{"__init__.py"},

		StdlibPrefixes: pythonStdlib,
	})
}

var pythonStdlib = map[string]bool{
	"os": true, "sys": true, "re": true, "json": true, "typing": true,
	"collections": true, "itertools": true, "functools": true, "abc": true,
	"asyncio": true, "threading": true, "multiprocessing": true, "subprocess": true,
	"pathlib": true, "io": true, "time": true, "datetime": true, "math": true,
	"random": true, "logging": true, "unittest": true, "argparse": true,
	"dataclasses": true, "enum": true, "contextlib": true, "copy": true,
	"hashlib": true, "base64": true, "socket": true, "http": true, "urllib": true,
	"sqlite3": true, "csv": true, "xml": true, "string": true, "textwrap": true,
	"shutil": true, "tempfile": true, "glob": true, "pickle": true, "struct": true,
	"traceback": true, "warnings": true, "weakref": true, "inspect": true,
	"dis": true, "ast": true, "uuid": true, "queue": true, "signal": true,
	"__future__": true, "importlib": true, "pkgutil": true, "platform": true,
}
