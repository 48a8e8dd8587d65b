package mailparse

import (
	"bufio"
	"io"
	"strings"

	"github.com/emersion/go-message/textproto"
)

// Field is one unfolded header field.
type Field struct {
	Key, Value string
}

// SplitHeader separates raw into header fields, in message order, and
// body. The split is line based and tolerant: CRLF and LF both work,
// leading blank lines and an mbox "From " separator are ignored, and the
// first line that is neither a field nor a continuation ends the header
// block. Text whose first line is not a header field has no headers and
// is returned whole as the body. The body is a slice of raw, line endings
// and surrounding whitespace included.
func SplitHeader(raw string) ([]Field, string) {
	text := strings.TrimLeft(raw, "\r\n")
	if strings.HasPrefix(text, "From ") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		}
	}

	var fields headerFields
	rest := text
	for rest != "" {
		line, next, _ := strings.Cut(rest, "\n")
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			return fields, next
		}
		if !fields.add(line) {
			if fields.empty() {
				return nil, text
			}
			return fields, rest
		}
		rest = next
	}
	return fields, ""
}

func splitMessage(raw string) (textproto.Header, string) {
	fields, body := SplitHeader(raw)
	return headerFields(fields).header(), body
}

// readHeader reads header fields from r up to the first blank line,
// using the same rules as splitMessage. The body is never read.
func readHeader(r io.Reader) (textproto.Header, error) {
	br := bufio.NewReader(r)
	var fields headerFields
	first := true
	for {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return fields.header(), nil
			}
			return textproto.Header{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if first && (line == "" || strings.HasPrefix(line, "From ")) {
			if err == io.EOF {
				return fields.header(), nil
			}
			continue
		}
		first = false
		if strings.TrimSpace(line) == "" || !fields.add(line) {
			return fields.header(), nil
		}
		if err == io.EOF {
			return fields.header(), nil
		}
	}
}

// headerFields accumulates unfolded fields in message order.
type headerFields []Field

func (f *headerFields) empty() bool {
	return len(*f) == 0
}

// add consumes one header line. It reports false when line is neither a
// field nor a continuation of the previous field.
func (f *headerFields) add(line string) bool {
	if line[0] == ' ' || line[0] == '\t' {
		if f.empty() {
			return false
		}
		last := &(*f)[len(*f)-1]
		last.Value += " " + strings.TrimSpace(line)
		return true
	}
	key, value, ok := strings.Cut(line, ":")
	if !ok || !validFieldName(key) {
		return false
	}
	*f = append(*f, Field{Key: key, Value: strings.TrimSpace(value)})
	return true
}

func (f headerFields) header() textproto.Header {
	var h textproto.Header
	for _, fl := range f {
		h.Add(fl.Key, fl.Value)
	}
	return h
}

func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f {
			return false
		}
	}
	return true
}
