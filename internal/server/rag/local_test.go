package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps any text mentioning "cats" to one axis and everything
// else to another, which makes similarity ordering predictable.
type axisEmbedder struct {
	calls int
}

func (f *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if strings.Contains(text, "cats") {
			out[i] = []float64{1, 0.1}
		} else {
			out[i] = []float64{0.1, 1}
		}
	}
	return out, nil
}

func newLocalEngine() (*LocalEngine, *axisEmbedder) {
	embedder := &axisEmbedder{}
	return NewLocalEngine(embedder, NewChunker(1000, 0), "embed-test"), embedder
}

func TestLocalEngine_BuildOpenSearch(t *testing.T) {
	e, _ := newLocalEngine()
	dir := t.TempDir()

	docs := []Document{
		{Name: "a.txt", Content: "cats purr and sleep all day"},
		{Name: "b.txt", Content: "compilers translate source code"},
	}
	require.NoError(t, e.Build(context.Background(), dir, docs))

	idx, err := e.Open(context.Background(), dir)
	require.NoError(t, err)

	fragments, err := idx.Search(context.Background(), "tell me about cats", 1)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "a.txt", fragments[0].Source)
	assert.Greater(t, fragments[0].Score, 0.9)
}

func TestLocalEngine_SearchTopKBounded(t *testing.T) {
	e, _ := newLocalEngine()
	dir := t.TempDir()

	require.NoError(t, e.Build(context.Background(), dir, []Document{{Name: "a.txt", Content: "cats"}}))

	idx, err := e.Open(context.Background(), dir)
	require.NoError(t, err)

	fragments, err := idx.Search(context.Background(), "cats", 10)
	require.NoError(t, err)
	assert.Len(t, fragments, 1)
}

func TestLocalEngine_BuildNoDocuments(t *testing.T) {
	e, _ := newLocalEngine()
	dir := t.TempDir()

	err := e.Build(context.Background(), dir, nil)
	assert.ErrorIs(t, err, common.ErrNoDocuments)
}

func TestLocalEngine_OpenWithoutBuild(t *testing.T) {
	e, _ := newLocalEngine()
	dir := t.TempDir()

	_, err := e.Open(context.Background(), dir)
	assert.ErrorIs(t, err, common.ErrNoIndex)
}

func TestLocalEngine_BuildBatchesLargeCorpora(t *testing.T) {
	e, embedder := newLocalEngine()
	dir := t.TempDir()

	// enough chunks to require more than one embeddings request
	long := strings.Repeat("cats and more cats. ", 5000)
	require.NoError(t, e.Build(context.Background(), dir, []Document{{Name: "long.txt", Content: long}}))
	assert.Greater(t, embedder.calls, 1)
}

func TestNormalize(t *testing.T) {
	v := normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	zero := normalize([]float64{0, 0})
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestReadManifest_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeManifest(dir, manifest{Engine: "local"}))

	m, err := readManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", m.Engine)
}
