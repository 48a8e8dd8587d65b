package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const armored = "-----BEGIN PGP MESSAGE-----\n%s\n-----END PGP MESSAGE-----"

func block(payload string) string {
	return strings.Replace(armored, "%s", payload, 1)
}

type mapDecrypter map[string]string

func (m mapDecrypter) Decrypt(_ context.Context, b string) (string, error) {
	for k, v := range m {
		if strings.Contains(b, k) {
			return v, nil
		}
	}
	return "", errors.New("no secret key")
}

func TestDecryptBlocks(t *testing.T) {
	content := "hello\n" + block("good") + "\nbetween\n" + block("bad") + "\nbye\n"
	require.True(t, HasPGPBlock(content))
	assert.False(t, HasPGPBlock("-----BEGIN PGP MESSAGE-----\nunterminated"))

	out, n, err := DecryptBlocks(context.Background(), content, mapDecrypter{"good": "PLAIN"})
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.ErrorContains(t, err, "no secret key")
	assert.Equal(t, "hello\nPLAIN\nbetween\n"+block("bad")+"\nbye\n", out)
}

func TestPrepareDecryptsAndUnwraps(t *testing.T) {
	in := encryptedMessage(block("inner") + "\n")
	d := mapDecrypter{"inner": "Content-Type: text/plain\nSubject: Inner subject\n\nsecret body\n"}

	p := Prepare(context.Background(), in, d, 0)
	assert.Equal(t, 1, p.Decrypted)
	assert.NoError(t, p.DecryptErr)
	assert.Equal(t, UnwrapDone, p.Unwrap)
	assert.False(t, p.Stripped())
	assert.Contains(t, p.Text, "Subject: Inner subject")
	assert.Contains(t, p.Text, "secret body")

	p = Prepare(context.Background(), in, nil, 0)
	assert.Equal(t, 0, p.Decrypted)
	assert.Equal(t, UnwrapEncrypted, p.Unwrap)
	assert.Equal(t, in, p.Text)
}

func fakeGPG(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	script := `#!/bin/sh
cat >/dev/null
for a in "$@"; do
	if [ "$a" = "--passphrase-fd" ]; then
		read -r p <&3
		echo "pass=$p"
	fi
done
if [ -z "$FAKE_GPG_SILENT" ]; then
	echo "plain text"
fi
exit ${FAKE_GPG_EXIT:-0}
`
	path := filepath.Join(t.TempDir(), "gpg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestGPGDecrypter(t *testing.T) {
	bin := fakeGPG(t)
	ctx := context.Background()

	out, err := (&GPGDecrypter{Binary: bin}).Decrypt(ctx, block("x"))
	require.NoError(t, err)
	assert.Equal(t, "plain text\n", out)

	out, err = (&GPGDecrypter{Binary: bin, Passphrase: "hunter2"}).Decrypt(ctx, block("x"))
	require.NoError(t, err)
	assert.Equal(t, "pass=hunter2\nplain text\n", out)

	t.Setenv("FAKE_GPG_EXIT", "2")
	out, err = (&GPGDecrypter{Binary: bin}).Decrypt(ctx, block("x"))
	require.NoError(t, err, "exit status 2 with output still decrypts")
	assert.Equal(t, "plain text\n", out)

	t.Setenv("FAKE_GPG_SILENT", "1")
	_, err = (&GPGDecrypter{Binary: bin}).Decrypt(ctx, block("x"))
	assert.Error(t, err)
}
