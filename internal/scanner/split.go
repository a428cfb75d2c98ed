package scanner

import (
	"strings"
	"unicode"
)

// SplitStatements splits content on every ';', trims each piece, drops
// empty ones, and records the line where each statement begins.
// Semicolons inside string literals or comments are not special.
func SplitStatements(source, content string) []Statement {
	var stmts []Statement
	line := 1

	for _, part := range strings.Split(content, ";") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			leading := part[:len(part)-len(strings.TrimLeftFunc(part, unicode.IsSpace))]
			stmts = append(stmts, Statement{
				Source: source,
				Line:   line + strings.Count(leading, "\n"),
				Text:   trimmed,
			})
		}
		line += strings.Count(part, "\n")
	}

	return stmts
}
