package kuid

import (
	"fmt"
	"strings"
)

// Match locates an identity inside marker file content. Start and End bound
// the bare identity text between the tag's angle brackets, so rewriting the
// identity touches only those bytes and leaves the rest of the file intact.
type Match struct {
	Identity Identity
	Start    int
	End      int
}

// Rewrite returns text with the matched identity span replaced by id's
// rendering. Everything outside [Start, End) is preserved byte-for-byte.
func (m Match) Rewrite(text string, id Identity) string {
	return text[:m.Start] + id.String() + text[m.End:]
}

// Find scans marker content line by line for the first kuid tag. A tag line
// starts (after optional whitespace) with the keyword kuid or kuid2,
// case-insensitively, followed by optional whitespace and an angle-bracketed
// identity whose keyword matches the tag's. The first tag line decides the
// outcome: a valid one yields the Match, an invalid one fails with
// ErrMalformedIdentity. Content with no tag line fails with
// ErrMissingIdentity.
func Find(text string) (Match, error) {
	offset := 0
	remaining := text
	for len(remaining) > 0 {
		line := remaining
		next := len(remaining)
		if idx := strings.IndexByte(remaining, '\n'); idx >= 0 {
			line = remaining[:idx]
			next = idx + 1
		}

		if keyword, rest, restOffset, ok := splitTagLine(line); ok {
			m, err := parseTagPayload(keyword, rest)
			if err != nil {
				return Match{}, err
			}
			m.Start += offset + restOffset
			m.End += offset + restOffset
			return m, nil
		}

		offset += next
		remaining = remaining[next:]
	}
	return Match{}, ErrMissingIdentity
}

// splitTagLine reports whether line is a kuid tag line. On success it returns
// the tag keyword, the remainder after the keyword, and the remainder's byte
// offset within the line.
func splitTagLine(line string) (keyword, rest string, restOffset int, ok bool) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	start := i
	for i < len(line) && isKeywordByte(line[i]) {
		i++
	}
	keyword = line[start:i]
	lower := strings.ToLower(keyword)
	if lower != "kuid" && lower != "kuid2" {
		return "", "", 0, false
	}
	// The keyword must end at whitespace, a bracket, or the end of the line.
	// Any other boundary byte means a different tag (kuid-table, ...).
	if i < len(line) {
		switch line[i] {
		case ' ', '\t', '<':
		default:
			return "", "", 0, false
		}
	}
	return lower, line[i:], i, true
}

func isKeywordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	default:
		return false
	}
}

// parseTagPayload validates the tag remainder: optional whitespace, then
// <identity>. The returned Match offsets are relative to rest.
func parseTagPayload(keyword, rest string) (Match, error) {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if i >= len(rest) || rest[i] != '<' {
		return Match{}, fmt.Errorf("%w: %s tag without bracketed identity", ErrMalformedIdentity, keyword)
	}
	open := i
	close := strings.IndexByte(rest[open:], '>')
	if close < 0 {
		return Match{}, fmt.Errorf("%w: unterminated bracket", ErrMalformedIdentity)
	}
	close += open

	payload := rest[open+1 : close]
	id, err := Parse(payload)
	if err != nil {
		return Match{}, err
	}
	if id.Variant.Keyword() != keyword {
		return Match{}, fmt.Errorf("%w: tag keyword %s does not match identity %s", ErrMalformedIdentity, keyword, id.Variant.Keyword())
	}
	return Match{Identity: id, Start: open + 1, End: close}, nil
}
