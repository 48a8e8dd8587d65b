package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMessageIDs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single", "<a@x>", []string{"<a@x>"}},
		{"folded list", "<a@x>\r\n\t<b@y> <a@x>", []string{"<a@x>", "<b@y>"}},
		{"ignores bare words", "see a@x and <b@y>", []string{"<b@y>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMessageIDs(tt.text))
		})
	}
}

func TestCanonicalMessageID(t *testing.T) {
	assert.Equal(t, "<a@x>", CanonicalMessageID("  <a@x> "))
	assert.Equal(t, "<a@x>", CanonicalMessageID("a@x"))
	assert.Equal(t, "<a@x>", CanonicalMessageID("<a@x> <b@x>"))
	assert.Equal(t, "", CanonicalMessageID("   "))
	assert.Equal(t, "", CanonicalMessageID("<>"))
	assert.Equal(t, "", CanonicalMessageID("not an id"))
}

func TestThreadRefs(t *testing.T) {
	got := ThreadRefs("<p@x>", []string{"<root@x>", "<p@x>", "mid@x"})
	assert.Equal(t, []string{"<p@x>", "<root@x>", "<mid@x>"}, got)

	assert.Empty(t, ThreadRefs("", nil))
}

func TestMatchRefs(t *testing.T) {
	known := map[string]bool{"<root@x>": true, "<other@x>": true}
	assert.Equal(t, []string{"<root@x>"}, MatchRefs([]string{"<p@x>", "<root@x>"}, known))
	assert.Nil(t, MatchRefs([]string{"<root@x>"}, nil))
}
