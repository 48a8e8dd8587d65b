// Package mailparse turns raw pasted email text into a structured Record.
// Parsing never fails: missing or malformed headers leave the matching
// field empty so that incomplete text can still be ingested by hand.
package mailparse

import (
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/threadboard/internal/crossref"
	"github.com/nhle/threadboard/internal/model"
)

// Record is the structured form of one email.
type Record struct {
	FromAddr string
	FromName string

	// Recipients holds the To and Cc addresses, lower-cased.
	Recipients []string

	// Date is zero when the header is absent or unparseable.
	Date    time.Time
	Subject string

	// MessageID is the canonical "<id>" form, or empty.
	MessageID string

	// InReplyTo and References are matching hints only.
	InReplyTo  string
	References []string

	// Body is the raw text after the first blank line, byte for byte.
	// It is not MIME decoded.
	Body string
	Raw  string
}

// HasMessageID reports whether the record can be deduplicated.
func (r Record) HasMessageID() bool {
	return r.MessageID != ""
}

// ThreadRefs returns the record's reply references, parent first.
func (r Record) ThreadRefs() []string {
	return crossref.ThreadRefs(r.InReplyTo, r.References)
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// Parse builds a Record from raw.
func Parse(raw string) Record {
	th, body := splitMessage(raw)
	h := mailHeader(th)

	rec := Record{
		Raw:        raw,
		Body:       body,
		Recipients: parseRecipients(h),
		Subject:    parseSubject(th, raw),
		Date:       parseDate(h),
		MessageID:  parseMessageID(h),
		InReplyTo:  firstMsgID(h, "In-Reply-To"),
		References: msgIDList(h, "References"),
	}
	rec.FromAddr, rec.FromName = parseFrom(h)
	return rec
}

// HeaderSummary is the subset of headers the review walker needs.
type HeaderSummary struct {
	MessageID string
	Date      time.Time
	Subject   string
}

// ReadHeaderSummary reads only the header block of a message from r.
// It fails only when r does.
func ReadHeaderSummary(r io.Reader) (HeaderSummary, error) {
	th, err := readHeader(r)
	if err != nil {
		return HeaderSummary{}, err
	}
	h := mailHeader(th)
	return HeaderSummary{
		MessageID: parseMessageID(h),
		Date:      parseDate(h),
		Subject:   parseSubject(th, ""),
	}, nil
}

// ExtractMessageID returns the canonical Message-ID of the message in r,
// or "" when it has none.
func ExtractMessageID(r io.Reader) (string, error) {
	s, err := ReadHeaderSummary(r)
	if err != nil {
		return "", err
	}
	return s.MessageID, nil
}

func mailHeader(th textproto.Header) mail.Header {
	return mail.Header{Header: message.Header{Header: th}}
}

func parseFrom(h mail.Header) (addr, name string) {
	if list, err := h.AddressList("From"); err == nil && len(list) > 0 {
		return strings.ToLower(list[0].Address), list[0].Name
	}

	raw := h.Get("From")
	addr = model.CanonicalAddress(raw)
	if open := strings.LastIndex(raw, "<"); open > 0 {
		name = strings.Trim(strings.TrimSpace(raw[:open]), `"`)
		if decoded, err := wordDecoder.DecodeHeader(name); err == nil {
			name = decoded
		}
	}
	return addr, name
}

func parseRecipients(h mail.Header) []string {
	var out []string
	seen := make(map[string]bool)
	for _, key := range []string{"To", "Cc"} {
		var addrs []string
		if list, err := h.AddressList(key); err == nil {
			for _, a := range list {
				addrs = append(addrs, a.Address)
			}
		} else {
			addrs = strings.Split(h.Get(key), ",")
		}
		for _, a := range addrs {
			a = model.CanonicalAddress(a)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func parseMessageID(h mail.Header) string {
	if id, err := h.MessageID(); err == nil && id != "" {
		return crossref.CanonicalMessageID(id)
	}
	return crossref.CanonicalMessageID(h.Get("Message-Id"))
}

func firstMsgID(h mail.Header, key string) string {
	if ids := msgIDList(h, key); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// msgIDList parses a list of message identifiers, falling back to a
// token scan when the header is malformed.
func msgIDList(h mail.Header, key string) []string {
	ids, err := h.MsgIDList(key)
	if err != nil || len(ids) == 0 {
		return crossref.ExtractMessageIDs(h.Get(key))
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if c := crossref.CanonicalMessageID(id); c != "" {
			out = append(out, c)
		}
	}
	return out
}
