// Package sanitize validates and cleans untrusted fields before any security
// record is built. Every function is pure: no I/O, no shared state.
package sanitize

import (
	"fmt"
	"net/netip"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "warden/pkg/domain-errors"
)

// Level selects the text cleaning rule set.
type Level int

const (
	// Basic strips control characters and caps length.
	Basic Level = iota
	// Strict also removes markup-like sequences and uses a shorter cap. Use it
	// for anything later shown in a dashboard or report.
	Strict
)

const (
	MaxUserIDLength   = 256
	MaxResourceLength = 500
	MaxBasicLength    = 4 * 1024
	MaxStrictLength   = 256
	MaxMetadataKeys   = 32
)

var (
	userIDPattern      = regexp.MustCompile(`^[A-Za-z0-9@._-]+$`)
	metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

	markupPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<\s*(script|style)[^>]*>.*?<\s*/\s*(script|style)\s*>`),
		regexp.MustCompile(`(?s)<[^>]*>`),
		regexp.MustCompile(`(?i)(javascript|vbscript|data)\s*:`),
		regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	}
	strictStrip = "<>\"'`&"
)

type rule struct {
	maxLen int
	clean  func(string) string
}

// rules dispatches each level to its cleaning function.
var rules = map[Level]rule{
	Basic:  {maxLen: MaxBasicLength, clean: stripUnprintable},
	Strict: {maxLen: MaxStrictLength, clean: stripMarkup},
}

// Text cleans free text for the given level. Oversized input is truncated,
// never rejected. Text(Text(s, l), l) == Text(s, l).
func Text(s string, level Level) string {
	r, ok := rules[level]
	if !ok {
		r = rules[Strict]
	}
	return apply(s, r)
}

func apply(s string, r rule) string {
	s = strings.ToValidUTF8(s, "")
	// Removing one sequence can splice together another, so iterate to a
	// fixed point. Each pass only shortens the string.
	for {
		next := r.clean(s)
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(truncate(s, r.maxLen))
}

// UserID validates a user identifier. It is rejected, not cleaned, because a
// silently altered identifier would corrupt correlation.
func UserID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.Validation("user_id", "must not be empty")
	}
	if len(s) > MaxUserIDLength {
		return "", dErrors.Validation("user_id", fmt.Sprintf("exceeds max length of %d", MaxUserIDLength))
	}
	if !userIDPattern.MatchString(s) {
		return "", dErrors.Validation("user_id", "contains characters outside [A-Za-z0-9@._-]")
	}
	return s, nil
}

// IP validates an IPv4 or IPv6 literal and returns its canonical form.
func IP(s string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || addr.Zone() != "" {
		return "", dErrors.Validation("source_ip", "must be an IPv4 or IPv6 literal")
	}
	return addr.Unmap().String(), nil
}

// Resource validates a target identifier: path traversal is rejected, the rest
// is cleaned with the Strict rules.
func Resource(s string) (string, error) {
	if strings.Contains(s, "..") {
		return "", dErrors.Validation("resource", "must not contain path traversal sequences")
	}
	if len(s) > MaxResourceLength {
		return "", dErrors.Validation("resource", fmt.Sprintf("exceeds max length of %d", MaxResourceLength))
	}
	out := apply(s, rule{maxLen: MaxResourceLength, clean: stripMarkup})
	// stripping markup can splice dots together
	if strings.Contains(out, "..") {
		return "", dErrors.Validation("resource", "must not contain path traversal sequences")
	}
	return out, nil
}

// Metadata keeps at most MaxMetadataKeys scalar entries (in key order) with
// well-formed keys. String values are cleaned at Basic level; non-scalar
// values are dropped.
func Metadata(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if metadataKeyPattern.MatchString(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := make(map[string]any, min(len(keys), MaxMetadataKeys))
	for _, k := range keys {
		if len(out) == MaxMetadataKeys {
			break
		}
		if v, ok := scalar(m[k]); ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func scalar(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return Text(t, Basic), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return t, true
	}
	return nil, false
}

func stripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

func stripMarkup(s string) string {
	s = stripUnprintable(s)
	for _, p := range markupPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(strictStrip, r) {
			return -1
		}
		return r
	}, s)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
