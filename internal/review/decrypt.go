package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var pgpBlock = regexp.MustCompile(`(?s)-----BEGIN PGP MESSAGE-----\r?\n.*?\r?\n-----END PGP MESSAGE-----`)

// Decrypter turns an armored PGP message block into plain text.
type Decrypter interface {
	Decrypt(ctx context.Context, block string) (string, error)
}

// GPGDecrypter runs gpg in batch mode.
type GPGDecrypter struct {
	// Binary defaults to "gpg".
	Binary string

	// Passphrase, when set, is handed to gpg on file descriptor 3 so it
	// never appears in the process arguments.
	Passphrase string
}

// Decrypt implements Decrypter. gpg exit status 2 (for example, a valid
// decryption whose signature could not be checked) still counts as
// decrypted.
func (g *GPGDecrypter) Decrypt(ctx context.Context, block string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "gpg"
	}
	args := []string{"--decrypt", "--quiet", "--batch"}

	var extra []*os.File
	if g.Passphrase != "" {
		r, w, err := os.Pipe()
		if err != nil {
			return "", fmt.Errorf("creating passphrase pipe: %w", err)
		}
		defer r.Close()
		go func() {
			defer w.Close()
			_, _ = w.WriteString(g.Passphrase + "\n")
		}()
		extra = append(extra, r)
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-fd", "3")
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(block)
	cmd.ExtraFiles = extra
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 2 && stdout.Len() > 0) {
		return "", fmt.Errorf("running %s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// HasPGPBlock reports whether content holds an armored PGP message.
func HasPGPBlock(content string) bool {
	return pgpBlock.MatchString(content)
}

// DecryptBlocks replaces every armored PGP message in content with its
// decryption. Blocks that fail to decrypt are left as they are; their
// errors are joined into err while out stays usable.
func DecryptBlocks(ctx context.Context, content string, d Decrypter) (out string, decrypted int, err error) {
	var errs []error
	out = pgpBlock.ReplaceAllStringFunc(content, func(block string) string {
		plain, derr := d.Decrypt(ctx, block)
		if derr != nil {
			errs = append(errs, derr)
			return block
		}
		decrypted++
		return plain
	})
	return out, decrypted, errors.Join(errs...)
}
