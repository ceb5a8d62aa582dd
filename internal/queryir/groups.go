package queryir

import (
	"regexp"
	"sort"
)

// Group names understood by EnumerateGroups, GetGroup and Groups.
const (
	GroupWhere      = "where"
	GroupProperty   = "property"
	GroupPagination = "pagination"
	GroupSkip       = "skip"
	GroupLimit      = "limit"
	GroupRelation   = "relation"
	GroupVariable   = "variable"
	GroupLabel      = "label"
)

const identPattern = `[A-Za-z_][A-Za-z0-9_]*`

// groupPatterns match one construct each. Patterns with a capture group
// report the capture; the others report the whole match.
var groupPatterns = map[string]*regexp.Regexp{
	GroupWhere:      regexp.MustCompile(`\[(?:"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|[^\]"'])*\]`),
	GroupProperty:   regexp.MustCompile(`(` + identPattern + `)\s*(?:<>|<=|>=|=|<|>|(?i:is\s+(?:not\s+)?null\b))`),
	GroupPagination: regexp.MustCompile(`\{[^}]*\}`),
	GroupSkip:       regexp.MustCompile(`(?i)\bskip\s*=\s*(\d+)`),
	GroupLimit:      regexp.MustCompile(`(?i)\blimit\s*=\s*(\d+)`),
	GroupRelation:   regexp.MustCompile(`(?:^|\.)\s*\??(` + identPattern + `(?:-` + identPattern + `)*)`),
	GroupVariable:   regexp.MustCompile(`@(` + identPattern + `)`),
	GroupLabel:      regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]*)\b`),
}

// groupScope restricts a group to the part of the text where it can occur.
var groupScope = map[string]func(string) string{
	GroupProperty: func(text string) string {
		return joinMatches(groupPatterns[GroupWhere], text)
	},
	GroupSkip: func(text string) string {
		return joinMatches(groupPatterns[GroupPagination], text)
	},
	GroupLimit: func(text string) string {
		return joinMatches(groupPatterns[GroupPagination], text)
	},
	GroupRelation: stripBrackets,
	GroupVariable: stripBrackets,
}

// EnumerateGroups returns every non-overlapping match of the named group in
// text, in order. Unknown group names and absent constructs yield nil.
func EnumerateGroups(text, name string) []string {
	re, ok := groupPatterns[name]
	if !ok {
		return nil
	}
	if scope, ok := groupScope[name]; ok {
		text = scope(text)
	}

	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 {
			out = append(out, m[1])
		} else {
			out = append(out, m[0])
		}
	}
	return out
}

// GetGroup returns the first match of the named group in text.
func GetGroup(text, name string) (string, bool) {
	all := EnumerateGroups(text, name)
	if len(all) == 0 {
		return "", false
	}
	return all[0], true
}

// Groups returns the first match of every group found anywhere in text.
func Groups(text string) map[string]string {
	names := make([]string, 0, len(groupPatterns))
	for name := range groupPatterns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string)
	for _, name := range names {
		if v, ok := GetGroup(text, name); ok {
			out[name] = v
		}
	}
	return out
}

func joinMatches(re *regexp.Regexp, text string) string {
	var out string
	for _, m := range re.FindAllString(text, -1) {
		out += m + " "
	}
	return out
}

func stripBrackets(text string) string {
	text = groupPatterns[GroupWhere].ReplaceAllString(text, "")
	return groupPatterns[GroupPagination].ReplaceAllString(text, "")
}
