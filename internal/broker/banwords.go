package broker

import "strings"

// Message fragments the broker is known to use when an account has been
// administratively suspended. Matched case-insensitively.
var banPhrases = []string{
	"account is blocked",
	"account is suspended",
	"account has been blocked",
	"account has been suspended",
	"access not available",
}

// LooksLikeBan is a best-effort heuristic over refresh error messages.
// The refresh endpoint never reports suspension directly, but some of its
// rejection messages strongly correlate with a ban. This is advisory only:
// the probe in banprobe.go is the authoritative source, and callers must
// never treat a heuristic hit as a substitute for it.
func LooksLikeBan(code Code, message string) bool {
	msg := strings.ToLower(message)

	for _, phrase := range banPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}

	// This phrase alone is ambiguous; combined with invalid_grant it almost
	// always means the account was pulled server-side.
	if code == CodeInvalidGrant && strings.Contains(msg, "unable to refresh your session") {
		return true
	}

	return false
}
