package review

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"

	"github.com/nhle/threadboard/internal/mailparse"
)

// UnwrapStatus reports what UnwrapPGPMIME did.
type UnwrapStatus int

const (
	// UnwrapNone means the message is not PGP/MIME.
	UnwrapNone UnwrapStatus = iota
	// UnwrapEncrypted means the payload is still an armored block.
	UnwrapEncrypted
	// UnwrapDone means the decrypted payload replaced the envelope.
	UnwrapDone
)

func (s UnwrapStatus) String() string {
	switch s {
	case UnwrapEncrypted:
		return "encrypted"
	case UnwrapDone:
		return "unwrapped"
	default:
		return "none"
	}
}

// envelopeFields are the outer fields that describe the encrypted
// envelope rather than the message and are dropped when unwrapping.
var envelopeFields = map[string]bool{
	"content-type":              true,
	"content-transfer-encoding": true,
	"content-disposition":       true,
}

// UnwrapPGPMIME turns a multipart/encrypted message whose payload has
// already been decrypted into a plain message: the outer transport
// headers are kept, the decrypted part's own headers (including any
// protected Subject) replace them where they overlap, and the decrypted
// body follows. A payload without MIME headers becomes text/plain.
func UnwrapPGPMIME(content string) (string, UnwrapStatus) {
	e, err := message.Read(strings.NewReader(content))
	if err != nil && !message.IsUnknownCharset(err) {
		return content, UnwrapNone
	}
	if mt, _, _ := e.Header.ContentType(); mt != "multipart/encrypted" {
		return content, UnwrapNone
	}

	payload, ok := encryptedPayload(e)
	if !ok || strings.TrimSpace(payload) == "" {
		return content, UnwrapNone
	}
	if strings.Contains(payload, "-----BEGIN PGP MESSAGE-----") {
		return content, UnwrapEncrypted
	}

	inner, body := mailparse.SplitHeader(payload)
	if !hasField(inner, "Content-Type") {
		inner = []mailparse.Field{{Key: "Content-Type", Value: "text/plain; charset=UTF-8"}}
		body = payload
	}
	replaced := make(map[string]bool, len(inner))
	for _, f := range inner {
		replaced[strings.ToLower(f.Key)] = true
	}

	outer, _ := mailparse.SplitHeader(content)
	var b strings.Builder
	for _, f := range outer {
		k := strings.ToLower(f.Key)
		if envelopeFields[k] || replaced[k] {
			continue
		}
		b.WriteString(f.Key + ": " + f.Value + "\n")
	}
	for _, f := range inner {
		b.WriteString(f.Key + ": " + f.Value + "\n")
	}
	b.WriteString("\n")
	b.WriteString(body)
	return b.String(), UnwrapDone
}

func encryptedPayload(e *message.Entity) (string, bool) {
	mr := e.MultipartReader()
	if mr == nil {
		return "", false
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return "", false
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", false
		}
		if mt, _, _ := p.Header.ContentType(); mt != "application/octet-stream" {
			continue
		}
		data, err := io.ReadAll(p.Body)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
}

func hasField(fields []mailparse.Field, key string) bool {
	for _, f := range fields {
		if strings.EqualFold(f.Key, key) {
			return true
		}
	}
	return false
}

// mimeNode is an in-memory MIME entity that can be edited and written
// back out. Leaf bodies are held decoded.
type mimeNode struct {
	header    message.Header
	body      []byte
	multipart bool
	children  []*mimeNode
}

func readNode(e *message.Entity, charsetOK bool) (*mimeNode, error) {
	n := &mimeNode{header: e.Header.Copy()}
	if mr := e.MultipartReader(); mr != nil {
		n.multipart = true
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, err
			}
			child, cerr := readNode(p, err == nil)
			if cerr != nil {
				return nil, cerr
			}
			n.children = append(n.children, child)
		}
		return n, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, err
	}
	n.body = body

	// The reader converted text bodies to UTF-8.
	mt, params, _ := n.header.ContentType()
	if cs := strings.ToLower(params["charset"]); charsetOK && strings.HasPrefix(mt, "text/") &&
		cs != "" && cs != "utf-8" && cs != "us-ascii" {
		params["charset"] = "utf-8"
		n.header.SetContentType(mt, params)
	}
	return n, nil
}

func (n *mimeNode) writeTo(w *message.Writer) error {
	if !n.multipart {
		_, err := w.Write(n.body)
		return err
	}
	for _, c := range n.children {
		pw, err := w.CreatePart(c.header)
		if err != nil {
			return err
		}
		if err := c.writeTo(pw); err != nil {
			return err
		}
		if err := pw.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (n *mimeNode) String() (string, error) {
	var buf bytes.Buffer
	w, err := message.CreateWriter(&buf, n.header)
	if err != nil {
		return "", err
	}
	if err := n.writeTo(w); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// largestAttachment returns the biggest leaf that is not plain text or
// HTML, ignoring encrypted subtrees.
func (n *mimeNode) largestAttachment() *mimeNode {
	var best *mimeNode
	var walk func(*mimeNode)
	walk = func(m *mimeNode) {
		mt, _, _ := m.header.ContentType()
		if m.multipart {
			if mt == "multipart/encrypted" {
				return
			}
			for _, c := range m.children {
				walk(c)
			}
			return
		}
		if mt == "text/plain" || mt == "text/html" {
			return
		}
		if best == nil || len(m.body) > len(best.body) {
			best = m
		}
	}
	walk(n)
	return best
}

// strip replaces the leaf with a short text placeholder.
func (n *mimeNode) strip() {
	name := "unnamed"
	if _, params, err := n.header.ContentDisposition(); err == nil && params["filename"] != "" {
		name = params["filename"]
	} else if _, params, err := n.header.ContentType(); err == nil && params["name"] != "" {
		name = params["name"]
	}

	for _, k := range []string{"Content-Transfer-Encoding", "Content-Disposition", "Content-Id"} {
		n.header.Del(k)
	}
	n.header.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	n.body = []byte(fmt.Sprintf("[attachment stripped: %s, %s]\n", name, formatSize(len(n.body))))
}

func formatSize(n int) string {
	const mb = 1024 * 1024
	if n > mb {
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	}
	return fmt.Sprintf("%.0fKB", float64(n)/1024)
}

// StripLargeAttachments replaces the largest non-text attachments of a
// multipart message with placeholders until it fits in maxBytes.
// Single-part and multipart/encrypted messages, and messages that
// already fit, are returned unchanged.
func StripLargeAttachments(content string, maxBytes int) (string, error) {
	if maxBytes <= 0 || len(content) <= maxBytes {
		return content, nil
	}

	e, err := message.Read(strings.NewReader(content))
	if err != nil && !message.IsUnknownCharset(err) {
		return content, fmt.Errorf("parsing message: %w", err)
	}
	mt, _, _ := e.Header.ContentType()
	if !strings.HasPrefix(mt, "multipart/") || mt == "multipart/encrypted" {
		return content, nil
	}

	root, err := readNode(e, err == nil)
	if err != nil {
		return content, fmt.Errorf("reading message parts: %w", err)
	}

	out := content
	stripped := false
	for len(out) > maxBytes {
		leaf := root.largestAttachment()
		if leaf == nil {
			break
		}
		leaf.strip()
		stripped = true
		if out, err = root.String(); err != nil {
			return content, fmt.Errorf("writing message: %w", err)
		}
	}
	if !stripped {
		return content, nil
	}
	return out, nil
}
