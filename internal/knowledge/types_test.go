package knowledge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataJSON(t *testing.T) {
	t.Run("typed fields become flat keys", func(t *testing.T) {
		m := Metadata{
			Filename:   "report.pdf",
			ChunkLabel: "chunk 2/5",
			Extra:      map[string]string{"language": "en"},
		}

		data, err := json.Marshal(m)
		require.NoError(t, err)

		var flat map[string]string
		require.NoError(t, json.Unmarshal(data, &flat))
		assert.Equal(t, map[string]string{
			"filename":    "report.pdf",
			"chunk_label": "chunk 2/5",
			"language":    "en",
		}, flat)
	})

	t.Run("round trip", func(t *testing.T) {
		m := Metadata{
			Filename:   "notes.md",
			ChunkLabel: "chunk 1/1",
			Extra:      map[string]string{"source": "upload"},
		}

		data, err := json.Marshal(m)
		require.NoError(t, err)

		var got Metadata
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, m, got)
	})

	t.Run("unknown keys land in Extra", func(t *testing.T) {
		var m Metadata
		require.NoError(t, json.Unmarshal([]byte(`{"filename":"a.txt","custom":"value"}`), &m))
		assert.Equal(t, "a.txt", m.Filename)
		assert.Equal(t, map[string]string{"custom": "value"}, m.Extra)
	})

	t.Run("empty metadata marshals to empty object", func(t *testing.T) {
		data, err := json.Marshal(Metadata{})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})

	t.Run("invalid JSON is rejected", func(t *testing.T) {
		var m Metadata
		assert.Error(t, json.Unmarshal([]byte(`{"filename":42}`), &m))
	})
}
