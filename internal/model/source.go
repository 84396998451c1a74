// Package model defines the data structures for test synthesis.
package model

// Path represents a file system path.
type Path string

// FunctionName is a normalized identifier of a discovered source function.
// Lists of FunctionName are multisets: family collapsing may produce duplicates.
type FunctionName string

// SourceUnit is the text of one source file plus the functions discovered in it.
// It is built once at pipeline start and never modified.
type SourceUnit struct {
	Path      Path
	Text      string
	Functions []FunctionName
}

// UniqueFunctions returns the function list with later duplicates removed,
// keeping discovery order.
func (s SourceUnit) UniqueFunctions() []FunctionName {
	return UniqueFunctions(s.Functions)
}

// UniqueFunctions removes later duplicates from names, keeping first-seen order.
func UniqueFunctions(names []FunctionName) []FunctionName {
	seen := make(map[FunctionName]struct{}, len(names))
	unique := make([]FunctionName, 0, len(names))

	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	return unique
}
