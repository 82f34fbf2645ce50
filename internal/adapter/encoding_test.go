package adapter

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,0.5,-2]", vectorLiteral([]float32{1, 0.5, -2}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}

func TestFloat32Blob(t *testing.T) {
	blob := float32Blob([]float32{1.5, -2.25})
	require.Len(t, blob, 8)
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(blob[0:4])))
	assert.Equal(t, float32(-2.25), math.Float32frombits(binary.LittleEndian.Uint32(blob[4:8])))
}

func TestParseSearchIDs(t *testing.T) {
	reply := []interface{}{
		int64(2),
		"bench:0",
		[]interface{}{"chunk_id", "doc_chunk_0"},
		"bench:1",
		[]interface{}{"score", "0.12", "chunk_id", "doc_chunk_7"},
	}
	assert.Equal(t, []string{"doc_chunk_0", "doc_chunk_7"}, parseSearchIDs(reply))

	assert.Nil(t, parseSearchIDs("unexpected"))
	assert.Nil(t, parseSearchIDs([]interface{}{int64(0)}))
}
