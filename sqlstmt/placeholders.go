// Package sqlstmt is the Parameter & Statement Processor (spec.md §4.2):
// placeholder policy validation, parameter count/value normalization, and
// comment/quote/BEGIN-END-aware multi-statement splitting.
//
// Uses a hand-rolled single-pass scanner over the SQL text rather than a
// general-purpose SQL parser, since only placeholder/quote/comment
// structure ever needs to be recognized here.
package sqlstmt

import (
	"strconv"

	"go.sqlitecoord.dev/core/dberrors"
)

// maxVariableNumber is SQLite's default SQLITE_LIMIT_VARIABLE_NUMBER: the
// highest bind-parameter index the engine will accept. ?N beyond this (or
// a positional count beyond this) is rejected here rather than surfacing
// as a raw engine error from Prepare.
const maxVariableNumber = 32766

// placeholder is one recognized `?` or `?N` occurrence in a statement.
type placeholder struct {
	explicit bool
	index    int // 1-based; only meaningful when explicit
}

// scanPlaceholders walks sqlText outside quotes/comments and returns every
// `?`/`?N` occurrence in source order, or an error if a named form
// (`:name`, `@name`, `$name`) is encountered.
func scanPlaceholders(sqlText string) ([]placeholder, error) {
	var out []placeholder
	var runes = []rune(sqlText)
	var i = 0
	for i < len(runes) {
		var c = runes[i]
		switch {
		case c == '\'' || c == '"':
			i = skipQuoted(runes, i, c)
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			i = skipLineComment(runes, i)
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i = skipBlockComment(runes, i)
		case c == '?':
			var j = i + 1
			var digitsStart = j
			for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
				j++
			}
			if j > digitsStart {
				n, _ := strconv.Atoi(string(runes[digitsStart:j]))
				out = append(out, placeholder{explicit: true, index: n})
			} else {
				out = append(out, placeholder{explicit: false})
			}
			i = j
		case c == ':' || c == '@' || c == '$':
			// Only reject if this looks like a named-parameter reference
			// (letter/underscore follows); ':' etc. can appear standalone
			// in some dialects but this system only ever binds via `?`.
			if i+1 < len(runes) && isIdentStart(runes[i+1]) {
				return nil, dberrors.Newf(dberrors.NamedParametersUnsupported, "named parameter form starting at character %d is not supported", i)
			}
			i++
		default:
			i++
		}
	}
	return out, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// ValidatePlaceholders enforces spec.md §4.2's placeholder policy and
// returns the number of distinct positional slots the statement expects.
// Only called when the caller has supplied parameters, named forms are
// otherwise permitted (SQLite handles them itself when no params are bound
// through this path).
func ValidatePlaceholders(sqlText string) (int, error) {
	var phs, err = scanPlaceholders(sqlText)
	if err != nil {
		return 0, err
	}

	var sawPlain, sawExplicit bool
	var maxIndex int
	var seen = map[int]bool{}
	for _, p := range phs {
		if p.explicit {
			sawExplicit = true
			if p.index < 1 || p.index > maxVariableNumber {
				return 0, dberrors.Newf(dberrors.InvalidParameterIndex, "?%d is out of range", p.index)
			}
			seen[p.index] = true
			if p.index > maxIndex {
				maxIndex = p.index
			}
		} else {
			sawPlain = true
		}
	}
	if sawPlain && sawExplicit {
		return 0, dberrors.New(dberrors.MixedPlaceholderForms, "statement mixes ? and ?N placeholders")
	}
	if sawExplicit {
		for n := 1; n <= maxIndex; n++ {
			if !seen[n] {
				return 0, dberrors.Newf(dberrors.MissingParameterIndex, "?%d is missing while ?%d is present", n, maxIndex)
			}
		}
		return maxIndex, nil
	}
	if len(phs) > maxVariableNumber {
		return 0, dberrors.Newf(dberrors.InvalidParameterIndex, "statement has %d placeholders, exceeding the engine's limit of %d", len(phs), maxVariableNumber)
	}
	return len(phs), nil
}

func skipQuoted(runes []rune, i int, quote rune) int {
	i++ // past opening quote
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				i += 2 // doubled-quote escape
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipLineComment(runes []rune, i int) int {
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(runes []rune, i int) int {
	i += 2 // past "/*"
	for i+1 < len(runes) {
		if runes[i] == '*' && runes[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(runes)
}
