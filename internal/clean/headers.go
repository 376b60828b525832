package clean

import (
	"regexp"
	"strings"
)

var (
	snakeRuns    = regexp.MustCompile(`[\s\-]+`)
	underscores  = regexp.MustCompile(`_+`)
	specialChars = regexp.MustCompile(`[^\p{L}\p{N}_]`)
)

// normalizeHeader applies the casing mode, then optionally strips every
// character that is not a letter, digit, or underscore. The mode must match
// exactly; unrecognized modes leave the casing alone.
func normalizeHeader(name, mode string, stripSpecial bool) string {
	switch mode {
	case "lowercase":
		name = strings.ToLower(name)
	case "UPPERCASE":
		name = strings.ToUpper(name)
	case "snake_case":
		name = snakeRuns.ReplaceAllString(name, "_")
		name = underscores.ReplaceAllString(name, "_")
		name = strings.ToLower(name)
	}
	if stripSpecial {
		name = specialChars.ReplaceAllString(name, "")
	}
	return name
}
