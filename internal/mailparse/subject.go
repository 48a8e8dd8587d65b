package mailparse

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/textproto"
)

var (
	// placeholderSubject matches the subjects PGP mailers put on the
	// outer message, such as "..." or "Re: ...".
	placeholderSubject = regexp.MustCompile(`(?i)^(re:\s*)*\.{2,}$`)

	protectedHeaders = regexp.MustCompile(`protected-headers="?v\d+"?`)

	replyPrefix = regexp.MustCompile(`(?i)^\s*(re|fwd?|aw|wg|sv|antw)\s*(\[\d+\])?\s*:\s*`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// parseSubject picks the longest Subject field (encrypting mailers may
// emit two) and decodes it. Placeholder subjects are replaced by the
// Subject of a protected-headers block found in raw.
func parseSubject(h textproto.Header, raw string) string {
	var subject string
	for _, v := range h.Values("Subject") {
		if len(v) > len(subject) {
			subject = v
		}
	}
	subject = decodeWords(subject)

	if isPlaceholderSubject(subject) {
		if protected := protectedSubject(raw); protected != "" {
			return protected
		}
	}
	return subject
}

func isPlaceholderSubject(subject string) bool {
	s := strings.TrimSpace(subject)
	return s == "" || placeholderSubject.MatchString(s)
}

// protectedSubject finds the first protected-headers marker in raw and
// returns the Subject from the header lines that follow it.
func protectedSubject(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	loc := protectedHeaders.FindStringIndex(raw)
	if loc == nil {
		return ""
	}
	_, rest, ok := strings.Cut(raw[loc[1]:], "\n")
	if !ok {
		return ""
	}

	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		value, ok := strings.CutPrefix(trimmed, "Subject:")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		for _, cont := range lines[i+1:] {
			if cont == "" || (cont[0] != ' ' && cont[0] != '\t') {
				break
			}
			value += " " + strings.TrimSpace(cont)
		}
		return decodeWords(value)
	}
	return ""
}

func decodeWords(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// NormalizeSubject reduces a subject to the form used for matching:
// reply and forward prefixes (Re, Fwd, Fw, Aw, Wg, Sv, Antw, optionally
// numbered as in "Re[2]:") are stripped however often they repeat,
// whitespace is collapsed and the result is lower-cased. Both
// "Re: Re: Budget Q3" and "Budget Q3 " normalize to "budget q3".
func NormalizeSubject(s string) string {
	for {
		loc := replyPrefix.FindStringIndex(s)
		if loc == nil {
			break
		}
		s = s[loc[1]:]
	}
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
