package parser

import "fmt"

// UnsupportedLanguageError is returned when ParseFile is given a
// language tag that has no registered extractor.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %s", e.Language)
}
