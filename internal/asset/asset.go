// Package asset discovers installable content directories inside a content
// tree. A directory is an asset root when it carries a marker file at its top
// level declaring the asset's identity; discovery treats such directories as
// leaves and never looks for nested assets inside them.
package asset

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tzbuild/internal/kuid"
)

// MarkerName is the well-known filename that declares an asset root.
const MarkerName = "config.txt"

// MarkerPath returns the path of the marker file inside dir.
func MarkerPath(dir string) string {
	return filepath.Join(dir, MarkerName)
}

// Root is a discovered asset: its directory and the identity parsed from the
// marker file. Username carries the marker's username tag when present.
type Root struct {
	Dir      string
	Identity kuid.Identity
	Username string
}

// Discovery is one scan finding. Err is nil for a valid asset; otherwise it
// explains why the directory's marker disqualified it (missing or malformed
// identity, unreadable marker), with Root.Dir still identifying the path.
type Discovery struct {
	Root Root
	Err  error
}

var titleCaser = cases.Title(language.Und)

// DisplayName returns a human-oriented name for report tables: the marker's
// username tag when present, otherwise the directory name with separators
// spaced out and title-cased.
func (r Root) DisplayName() string {
	if r.Username != "" {
		return r.Username
	}
	base := filepath.Base(r.Dir)
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return base
	}
	return titleCaser.String(strings.ToLower(cleaned))
}

// extractUsername pulls the value of the marker's username tag: the first line
// whose leading token is "username", taking the text between its double
// quotes. Markers without the tag yield "".
func extractUsername(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		rest, ok := cutToken(trimmed, "username")
		if !ok {
			continue
		}
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			if value := strings.TrimSpace(rest); value != "" {
				return value
			}
			continue
		}
		close := strings.IndexByte(rest[open+1:], '"')
		if close < 0 {
			continue
		}
		if value := rest[open+1 : open+1+close]; value != "" {
			return value
		}
	}
	return ""
}

// cutToken strips a leading keyword token, case-insensitively. The keyword
// must end at whitespace or end of line so that tags like username-fr do not
// match.
func cutToken(line, token string) (string, bool) {
	if len(line) < len(token) || !strings.EqualFold(line[:len(token)], token) {
		return "", false
	}
	rest := line[len(token):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return rest, true
}
