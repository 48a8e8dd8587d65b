package review

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandClipboard(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "clip")

	c := &CommandClipboard{Args: []string{"sh", "-c", "cat > " + path}}
	require.NoError(t, c.Write(ctx, "staged text"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "staged text", string(data))

	c = &CommandClipboard{Args: []string{"sh", "-c", "echo no display >&2; exit 1"}}
	assert.ErrorContains(t, c.Write(ctx, "x"), "no display")

	assert.Error(t, NewCommandClipboard("   ").Write(ctx, "x"))
}

func TestNewClipboard(t *testing.T) {
	assert.IsType(t, SystemClipboard{}, NewClipboard(""))
	c, ok := NewClipboard("wl-copy --type text/plain").(*CommandClipboard)
	require.True(t, ok)
	assert.Equal(t, []string{"wl-copy", "--type", "text/plain"}, c.Args)
}
