package notary

import (
	"regexp"
	"strings"
)

// Verdict is the bounded classification of one status-query response.
type Verdict int

const (
	// VerdictInProgress means the service is still working; keep polling.
	VerdictInProgress Verdict = iota
	// VerdictSuccess means the archive was notarized.
	VerdictSuccess
	// VerdictInvalid means the service rejected the archive.
	VerdictInvalid
	// VerdictUnknown covers everything else, including an empty or
	// unparseable response. Terminal, and distinct from rejection.
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictInProgress:
		return "in progress"
	case VerdictSuccess:
		return "success"
	case VerdictInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// The service's only contract is line-oriented human-readable text, so both
// extractions are pattern matches over that text.
var (
	requestIDPattern = regexp.MustCompile(`\nRequestUUID = (.+?)\n`)
	statusPattern    = regexp.MustCompile(`\n *Status: (.+?)\n`)
)

// ExtractRequestID pulls the request identifier out of the submit command's
// output. The second return is false when no identifier is present.
func ExtractRequestID(output string) (string, bool) {
	match := requestIDPattern.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	id := strings.TrimSpace(match[1])
	return id, id != ""
}

// ExtractStatus pulls the status phrase out of a status-query response, or ""
// when none is present.
func ExtractStatus(output string) string {
	match := statusPattern.FindStringSubmatch(output)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// Classify maps a status-query response onto the bounded verdict set. It is a
// pure function so the brittle substring vocabulary stays in one testable
// place instead of inline in the poll loop.
func Classify(output string) Verdict {
	status := strings.ToLower(ExtractStatus(output))
	switch {
	case strings.Contains(status, "in progress"):
		return VerdictInProgress
	case strings.Contains(status, "invalid"):
		return VerdictInvalid
	case strings.Contains(status, "success"):
		return VerdictSuccess
	default:
		return VerdictUnknown
	}
}
