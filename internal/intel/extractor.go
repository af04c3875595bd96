// Package intel extracts payment identifiers from conversation text.
// Extraction is pure and total: it never fails on arbitrary text and
// returns nothing when nothing matches. Deduplication across turns is the
// session's concern; within a single call duplicate (kind, value) pairs
// are collapsed.
package intel

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/tarpitlabs/tarpit/internal/domain"
)

var (
	urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"')]+`)

	// handle@provider with an alphabetic provider suffix. Word boundaries
	// stop at "." so user@gmail.com surfaces as user@gmail; the email
	// check below inspects what follows.
	upiPattern = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9._-]{1,255}@[a-z]{2,64}\b`)

	// 10-digit Indian mobile with optional +91 prefix and separators.
	phonePattern = regexp.MustCompile(`(?:\+91[\s-]?)?[6-9]\d{9}`)

	// Digit run adjacent to an account-indicating keyword.
	bankContextPattern = regexp.MustCompile(`(?i)(?:account|acct|acc|a/c|ac|number|no)[\s.:#-]*(\d{9,18})`)

	// Standalone digit runs long enough to rule out phone numbers.
	bankLongPattern = regexp.MustCompile(`\d{11,18}`)
)

// knownPSPSuffixes are recognized UPI provider handles. Anything outside
// this set is still accepted if it is short enough to be a plausible PSP
// suffix and does not look like an email domain.
var knownPSPSuffixes = map[string]bool{
	"upi": true, "paytm": true, "ybl": true, "oksbi": true, "okaxis": true,
	"okhdfcbank": true, "okicici": true, "okbizaxis": true, "apl": true,
	"ibl": true, "axl": true, "sbi": true, "axisbank": true, "icici": true,
	"hdfcbank": true, "kotak": true, "yesbank": true, "freecharge": true,
	"mobikwik": true, "airtel": true, "jio": true,
}

// emailProviders are common mail domains whose handle@domain shape must not
// be mistaken for a UPI ID.
var emailProviders = map[string]bool{
	"gmail": true, "yahoo": true, "hotmail": true, "outlook": true,
	"rediffmail": true, "rediff": true, "protonmail": true, "proton": true,
	"icloud": true, "aol": true, "live": true, "mail": true, "zoho": true,
}

const maxGenericSuffixLen = 16

// span is a claimed [start,end) region of the input text. Later, less
// specific patterns must not re-claim text inside an earlier match.
type span struct{ start, end int }

func overlaps(claimed []span, start, end int) bool {
	for _, s := range claimed {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

// Extract scans text for payment identifiers. SourceTurn on the returned
// identifiers is zero; the caller assigns it when merging into a session.
//
// Match precedence when patterns could claim the same span: URL, then UPI,
// then keyword-adjacent bank account, then phone number, then standalone
// long digit runs. A span claimed by one kind is never emitted for another.
func Extract(text string) []domain.Identifier {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		out     []domain.Identifier
		claimed []span
		seen    = make(map[string]bool)
	)

	add := func(id domain.Identifier, start, end int) {
		claimed = append(claimed, span{start, end})
		if seen[id.Key()] {
			return
		}
		seen[id.Key()] = true
		out = append(out, id)
	}

	// URLs first so digits and @-shapes inside them are not re-extracted.
	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		raw := strings.TrimRight(text[m[0]:m[1]], ".,;!?")
		add(domain.Identifier{
			Kind:  domain.KindURL,
			Value: normalizeURL(raw),
			Raw:   raw,
		}, m[0], m[0]+len(raw))
	}

	for _, m := range upiPattern.FindAllStringIndex(text, -1) {
		if overlaps(claimed, m[0], m[1]) {
			continue
		}
		raw := text[m[0]:m[1]]
		if !validUPISuffix(text, raw, m[1]) {
			continue
		}
		add(domain.Identifier{
			Kind:  domain.KindUPI,
			Value: strings.ToLower(raw),
			Raw:   raw,
		}, m[0], m[1])
	}

	// Keyword-adjacent account numbers beat phone numbers on the same span.
	for _, m := range bankContextPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if overlaps(claimed, start, end) || !digitBounded(text, start, end) {
			continue
		}
		raw := text[start:end]
		add(domain.Identifier{
			Kind:  domain.KindBankAccount,
			Value: raw,
			Raw:   raw,
		}, start, end)
	}

	for _, m := range phonePattern.FindAllStringIndex(text, -1) {
		if overlaps(claimed, m[0], m[1]) || !digitBounded(text, m[0], m[1]) {
			continue
		}
		raw := text[m[0]:m[1]]
		add(domain.Identifier{
			Kind:  domain.KindPhone,
			Value: normalizePhone(raw),
			Raw:   raw,
		}, m[0], m[1])
	}

	for _, m := range bankLongPattern.FindAllStringIndex(text, -1) {
		if overlaps(claimed, m[0], m[1]) || !digitBounded(text, m[0], m[1]) {
			continue
		}
		raw := text[m[0]:m[1]]
		add(domain.Identifier{
			Kind:  domain.KindBankAccount,
			Value: raw,
			Raw:   raw,
		}, m[0], m[1])
	}

	return out
}

// suspiciousKeywords are tracked for callback reporting, independent of the
// classifier's scoring categories.
var suspiciousKeywords = []string{
	"urgent", "verify", "block", "kyc", "otp", "refund",
	"password", "pin", "cvv", "expire", "suspend", "lottery",
}

// Keywords returns the suspicious keywords present in the text.
func Keywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// digitBounded reports whether the digit run at [start,end) is not part of
// a longer digit run. RE2 has no lookaround, so the neighbors are checked
// by hand.
func digitBounded(text string, start, end int) bool {
	if start > 0 && isDigit(text[start-1]) {
		return false
	}
	if end < len(text) && isDigit(text[end]) {
		return false
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// validUPISuffix applies the provider policy: recognized PSP suffixes are
// always accepted, email-looking matches are rejected, and anything else
// passes only as a short generic suffix.
func validUPISuffix(text, raw string, end int) bool {
	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		return false
	}
	suffix := strings.ToLower(raw[at+1:])

	if knownPSPSuffixes[suffix] {
		return true
	}

	// A dot followed by a letter after the match means handle@domain.tld.
	if end+1 < len(text) && text[end] == '.' && isAlpha(text[end+1]) {
		return false
	}
	if emailProviders[suffix] {
		return false
	}

	return len(suffix) <= maxGenericSuffixLen
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// normalizePhone strips separators and the country prefix, keeping the
// trailing 10 digits.
func normalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return s
}

// normalizeURL lowercases the scheme and host, leaving path and query
// untouched.
func normalizeURL(raw string) string {
	candidate := raw
	if strings.HasPrefix(strings.ToLower(raw), "www.") {
		candidate = "http://" + raw
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if candidate != raw {
		// Preserve the schemeless form the scammer actually sent.
		return strings.TrimPrefix(u.String(), "http://")
	}
	return u.String()
}
