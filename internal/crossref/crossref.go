// Package crossref extracts and canonicalizes RFC 5322 message
// identifiers from header values such as Message-ID, In-Reply-To and
// References.
package crossref

import (
	"regexp"
	"strings"
)

// messageIDPattern matches angle-bracketed message identifiers
// (e.g., <CAF+abc@mail.example.com>).
var messageIDPattern = regexp.MustCompile(`<[^<>\s]+>`)

// ExtractMessageIDs extracts all bracketed message identifiers from text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractMessageIDs(text string) []string {
	matches := messageIDPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// CanonicalMessageID returns id in its stored form: surrounding
// whitespace trimmed and wrapped in exactly one pair of angle brackets.
// A header holding several identifiers yields the first. Empty input
// yields "".
func CanonicalMessageID(id string) string {
	if ids := ExtractMessageIDs(id); len(ids) > 0 {
		return ids[0]
	}
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, " \t\r\n") {
		return ""
	}
	return "<" + id + ">"
}

// ThreadRefs combines a message's In-Reply-To and References values into
// one deduplicated list, parent first.
func ThreadRefs(inReplyTo string, references []string) []string {
	combined := make([]string, 0, len(references)+1)
	if id := CanonicalMessageID(inReplyTo); id != "" {
		combined = append(combined, id)
	}
	for _, ref := range references {
		if id := CanonicalMessageID(ref); id != "" {
			combined = append(combined, id)
		}
	}
	return ExtractMessageIDs(strings.Join(combined, " "))
}

// MatchRefs returns the refs that appear in known, in order. A nil or
// empty known set matches nothing.
func MatchRefs(refs []string, known map[string]bool) []string {
	if len(known) == 0 {
		return nil
	}

	var matched []string
	for _, ref := range refs {
		if known[ref] {
			matched = append(matched, ref)
		}
	}
	return matched
}
