// Package capi cross-checks the functions declared in a C header against
// their use in a source tree.
package capi

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	preprocessor = regexp.MustCompile(`(?m)^[ \t]*#(?:[^\n]*\\\n)*[^\n]*$`)
	declaredName = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*$`)
)

// ParseHeader returns the names of the functions declared in a C header,
// keeping those starting with prefix. Names are unique and in declaration
// order. Typedefs, including function pointer typedefs, are not functions.
func ParseHeader(r io.Reader, prefix string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("can't read header: %w", err)
	}

	src := blockComment.ReplaceAllString(string(data), " ")
	src = lineComment.ReplaceAllString(src, "")
	src = preprocessor.ReplaceAllString(src, "")

	seen := map[string]bool{}
	var names []string
	for _, stmt := range strings.Split(src, ";") {
		// only the part after the last brace belongs to this statement,
		// the rest closes a struct or opens an extern "C" block
		if i := strings.LastIndexAny(stmt, "{}"); i >= 0 {
			stmt = stmt[i+1:]
		}
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "typedef") {
			continue
		}

		open := strings.IndexByte(stmt, '(')
		if open < 0 {
			continue
		}
		// (*name)(...) is a function pointer, a struct member or variable
		if strings.HasPrefix(strings.TrimSpace(stmt[open+1:]), "*") {
			continue
		}
		m := declaredName.FindStringSubmatch(stmt[:open])
		if m == nil {
			continue
		}
		name := m[1]
		if !strings.HasPrefix(name, prefix) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}
