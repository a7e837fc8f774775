package deploy

import (
	"regexp"
	"strings"
)

// Verdict is the classification of the test job log.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictSuccess
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Classify decides the verdict of a test log. The marker must appear as a whole word, so
// "OK" matches "Test Result: OK" but not "TOKEN". Markers such as "[PASS]" that begin or end
// with punctuation are only bounded on their word sides. Blank logs are VerdictUnknown.
func Classify(logs, marker string) Verdict {
	if strings.TrimSpace(logs) == "" {
		return VerdictUnknown
	}
	if re := markerPattern(marker); re != nil && re.MatchString(logs) {
		return VerdictSuccess
	}
	return VerdictFailure
}

func markerPattern(marker string) *regexp.Regexp {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return nil
	}
	pattern := regexp.QuoteMeta(marker)
	if isWordByte(marker[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(marker[len(marker)-1]) {
		pattern += `\b`
	}
	return regexp.MustCompile(pattern)
}

// isWordByte reports whether b is in the ASCII class \b is defined against.
func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
