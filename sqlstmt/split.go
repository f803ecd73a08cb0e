package sqlstmt

import (
	"strings"

	"go.sqlitecoord.dev/core/dberrors"
)

// Prepare is the entry point for both single- and multi-statement
// payloads (spec.md §4.2). Splitting is attempted only when the payload
// is terminated by an unquoted, uncommented `;` after its last statement
// (the "trailing semicolon" gate), a payload like "A; B" with no final
// separator is passed through whole, internal `;` and all. When haveParams
// is true, a payload that would split fails with
// MultiStatementNotAllowedWithParams instead.
func Prepare(sqlText string, haveParams bool) ([]string, error) {
	var stmts, terminated = split(sqlText)
	if !terminated || len(stmts) <= 1 {
		return []string{sqlText}, nil
	}
	if haveParams {
		return nil, dberrors.New(dberrors.MultiStatementNotAllowedWithParams, "multiple statements are not allowed when parameters are supplied")
	}
	return stmts, nil
}

// Split breaks sqlText into individual statements, respecting quoted
// strings, line/block comments, and BEGIN…END compound blocks (spec.md
// §4.2), honoring the trailing-semicolon gate: if the payload is not
// terminated by a top-level `;` after its last statement, it is returned
// as a single unsplit fragment.
func Split(sqlText string) []string {
	var stmts, terminated = split(sqlText)
	if !terminated {
		return []string{strings.TrimSpace(sqlText)}
	}
	return stmts
}

// split is the raw scanner: it returns every top-level-`;`-delimited,
// trimmed, non-empty fragment (comments that open a fragment are dropped
// from it), plus whether the payload's last non-
// whitespace content (outside quotes/comments/BEGIN-END) was itself a
// top-level `;`, i.e. whether the payload is "terminated".
func split(sqlText string) (fragments []string, terminated bool) {
	var runes = []rune(sqlText)
	var out []string
	var start = 0
	var beginDepth = 0
	var i = 0

	var flush = func(end int) {
		var frag = strings.TrimSpace(string(runes[start:end]))
		if frag != "" {
			out = append(out, frag)
		}
		start = end + 1
		terminated = true
	}

	for i < len(runes) {
		var c = runes[i]
		switch {
		case c == '\'' || c == '"':
			i = skipQuoted(runes, i, c)
			terminated = false
			continue
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			var leading = strings.TrimSpace(string(runes[start:i])) == ""
			i = skipLineComment(runes, i)
			if leading {
				start = i // drop a comment that opens a fragment
			}
			continue
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			var leading = strings.TrimSpace(string(runes[start:i])) == ""
			i = skipBlockComment(runes, i)
			if leading {
				start = i
			}
			continue
		case c == ';':
			if beginDepth == 0 {
				flush(i)
			}
			i++
			continue
		}
		if isKeywordAt(runes, i, "BEGIN") {
			beginDepth++
			i += len("BEGIN")
			terminated = false
			continue
		}
		if isKeywordAt(runes, i, "END") {
			if beginDepth > 0 {
				beginDepth--
			}
			i += len("END")
			terminated = false
			continue
		}
		if !isWhitespace(c) {
			terminated = false
		}
		i++
	}
	if start < len(runes) {
		var frag = strings.TrimSpace(string(runes[start:]))
		if frag != "" {
			out = append(out, frag)
		}
	}
	return out, terminated
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// isKeywordAt reports whether the case-insensitive keyword kw occurs at
// position i as a standalone word (not a substring of a longer identifier).
func isKeywordAt(runes []rune, i int, kw string) bool {
	if i > 0 && isIdentPart(runes[i-1]) {
		return false
	}
	var kwLen = len([]rune(kw))
	if i+kwLen > len(runes) {
		return false
	}
	if !strings.EqualFold(string(runes[i:i+kwLen]), kw) {
		return false
	}
	if i+kwLen < len(runes) && isIdentPart(runes[i+kwLen]) {
		return false
	}
	return true
}

func isIdentPart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
