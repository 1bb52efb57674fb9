package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		assert.Nil(t, SplitText("", 100, 20))
	})

	t.Run("fits in one chunk", func(t *testing.T) {
		chunks := SplitText("short text", 100, 20)
		assert.Equal(t, []string{"short text"}, chunks)
	})

	t.Run("exact size is one chunk", func(t *testing.T) {
		text := strings.Repeat("a", 100)
		chunks := SplitText(text, 100, 20)
		assert.Equal(t, []string{text}, chunks)
	})

	t.Run("chunks overlap", func(t *testing.T) {
		text := strings.Repeat("a", 150) + strings.Repeat("b", 150)
		chunks := SplitText(text, 100, 20)
		require.GreaterOrEqual(t, len(chunks), 2)

		for i := 1; i < len(chunks); i++ {
			prev := []rune(chunks[i-1])
			tail := string(prev[len(prev)-20:])
			assert.True(t, strings.HasPrefix(chunks[i], tail),
				"chunk %d should start with the last 20 runes of chunk %d", i, i-1)
		}
	})

	t.Run("no rune exceeds size", func(t *testing.T) {
		text := strings.Repeat("x", 1000)
		for _, c := range SplitText(text, 100, 20) {
			assert.LessOrEqual(t, len([]rune(c)), 100)
		}
	})

	t.Run("reassembles to original without overlap", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 50)
		chunks := SplitText(text, 100, 0)
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("multibyte runes stay intact", func(t *testing.T) {
		text := strings.Repeat("知識庫檢索", 50)
		for _, c := range SplitText(text, 100, 20) {
			assert.True(t, utf8.ValidString(c))
			assert.NotContains(t, c, "�")
		}
	})
}
