package jsonl

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gio "github.com/hed1ad/isoforest/pkg/io"
)

func TestWriteAll(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	require.NoError(t, w.WriteAll([]gio.Result{
		{Timestamp: 1, Score: 0.8, IsAnomaly: true},
		{Timestamp: 2, Score: 0.3, Features: []float64{1, 2}},
	}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var got gio.Result
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, 0.3, got.Score)
	assert.Equal(t, []float64{1, 2}, got.Features)
	assert.NotContains(t, lines[0], "features")
}

func TestWriteNaN(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	assert.Error(t, w.Write(gio.Result{Features: []float64{math.NaN()}}))
}
