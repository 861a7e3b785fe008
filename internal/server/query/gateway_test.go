package query

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/dmitrijs2005/tubequery/internal/logging"
	"github.com/dmitrijs2005/tubequery/internal/server/namespace"
	"github.com/dmitrijs2005/tubequery/internal/server/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	fragments []rag.Fragment
	err       error
	gotTopK   int
}

func (f *fakeIndex) Search(ctx context.Context, question string, topK int) ([]rag.Fragment, error) {
	f.gotTopK = topK
	return f.fragments, f.err
}

type fakeEngine struct {
	index   *fakeIndex
	openErr error
}

func (f *fakeEngine) Build(ctx context.Context, dir string, docs []rag.Document) error {
	return errors.New("not used")
}

func (f *fakeEngine) Open(ctx context.Context, dir string) (rag.Index, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.index, nil
}

func (f *fakeEngine) Drop(ctx context.Context, dir string) error { return nil }

type fakeSynthesizer struct {
	answer    string
	err       error
	gotPrompt string
}

func (f *fakeSynthesizer) Complete(ctx context.Context, system, user string) (string, error) {
	f.gotPrompt = user
	return f.answer, f.err
}

func newTestGateway(t *testing.T, engine rag.Engine, synth Synthesizer) *Gateway {
	t.Helper()
	root := t.TempDir()
	allocator := namespace.NewAllocator(filepath.Join(root, "data"), filepath.Join(root, "storage"))
	require.NoError(t, allocator.EnsureExists("alice"))
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	return NewGateway(allocator, namespace.NewLocker(), engine, synth, 4, 0.3, logger)
}

func TestQuery_Success(t *testing.T) {
	idx := &fakeIndex{fragments: []rag.Fragment{
		{Text: "cats purr", Source: "a.txt", Score: 0.9},
		{Text: "irrelevant", Source: "b.txt", Score: 0.1},
	}}
	synth := &fakeSynthesizer{answer: "Cats purr."}
	g := newTestGateway(t, &fakeEngine{index: idx}, synth)

	answer, err := g.Query(context.Background(), "alice", "what do cats do?")
	require.NoError(t, err)
	assert.Equal(t, "Cats purr.", answer)
	assert.Equal(t, 4, idx.gotTopK)

	// the low-relevance fragment must not reach the synthesizer
	assert.Contains(t, synth.gotPrompt, "cats purr")
	assert.NotContains(t, synth.gotPrompt, "irrelevant")
	assert.True(t, strings.HasSuffix(synth.gotPrompt, "what do cats do?"))
}

func TestQuery_NoIndex(t *testing.T) {
	g := newTestGateway(t, &fakeEngine{openErr: common.ErrNoIndex}, &fakeSynthesizer{})

	_, err := g.Query(context.Background(), "alice", "anything")
	assert.ErrorIs(t, err, common.ErrNoIndex)
}

func TestQuery_AllFragmentsBelowThreshold(t *testing.T) {
	idx := &fakeIndex{fragments: []rag.Fragment{{Text: "weak", Score: 0.05}}}
	synth := &fakeSynthesizer{answer: "I don't know."}
	g := newTestGateway(t, &fakeEngine{index: idx}, synth)

	answer, err := g.Query(context.Background(), "alice", "anything")
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer)
	assert.Contains(t, synth.gotPrompt, "no relevant fragments")
}

func TestQuery_SearchFailure(t *testing.T) {
	idx := &fakeIndex{err: errors.New("store offline")}
	g := newTestGateway(t, &fakeEngine{index: idx}, &fakeSynthesizer{})

	_, err := g.Query(context.Background(), "alice", "anything")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNoIndex)
}

func TestQuery_SynthesizerFailure(t *testing.T) {
	idx := &fakeIndex{fragments: []rag.Fragment{{Text: "x", Score: 0.9}}}
	g := newTestGateway(t, &fakeEngine{index: idx}, &fakeSynthesizer{err: common.ErrUpstream})

	_, err := g.Query(context.Background(), "alice", "anything")
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestQuery_InvalidUsername(t *testing.T) {
	g := newTestGateway(t, &fakeEngine{}, &fakeSynthesizer{})

	_, err := g.Query(context.Background(), "../evil", "anything")
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
}
