package review

import "context"

// Prepared is a message made ready for the clipboard.
type Prepared struct {
	Text string

	// Decrypted counts PGP blocks replaced by their plain text.
	Decrypted  int
	DecryptErr error

	Unwrap UnwrapStatus

	// SizeBeforeStrip and SizeAfterStrip differ when attachments were
	// replaced by placeholders.
	SizeBeforeStrip int
	SizeAfterStrip  int
	StripErr        error
}

// Stripped reports whether attachments were removed.
func (p Prepared) Stripped() bool {
	return p.SizeAfterStrip < p.SizeBeforeStrip
}

// Prepare decrypts inline PGP blocks (when d is set), unwraps decrypted
// PGP/MIME envelopes and strips large attachments. Failures in any step
// leave that step's input in place.
func Prepare(ctx context.Context, content string, d Decrypter, maxBytes int) Prepared {
	var p Prepared
	if d != nil && HasPGPBlock(content) {
		content, p.Decrypted, p.DecryptErr = DecryptBlocks(ctx, content, d)
	}

	content, p.Unwrap = UnwrapPGPMIME(content)

	p.SizeBeforeStrip = len(content)
	stripped, err := StripLargeAttachments(content, maxBytes)
	if err != nil {
		p.StripErr = err
	} else {
		content = stripped
	}
	p.SizeAfterStrip = len(content)

	p.Text = content
	return p
}
