package rag

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"golang.org/x/sync/errgroup"
)

const (
	manifestFileName = "manifest.json"
	vectorsFileName  = "index.gob"

	// embedBatchSize bounds one embeddings request; embedWorkers bounds the
	// number of in-flight requests during a build.
	embedBatchSize = 32
	embedWorkers   = 4
)

// Embedder is the external embedding collaborator of the local engine.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// manifest marks a directory as holding a complete, valid index. It is
// written last during a build, so its presence is the validity criterion.
type manifest struct {
	Engine     string    `json:"engine"`
	Model      string    `json:"model"`
	Collection string    `json:"collection,omitempty"`
	Chunks     int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

type storedChunk struct {
	Source string
	Text   string
	Vector []float64
}

// LocalEngine persists embedded chunks inside the index region itself and
// answers searches with brute-force cosine similarity.
type LocalEngine struct {
	embedder Embedder
	chunker  *Chunker
	model    string
}

func NewLocalEngine(embedder Embedder, chunker *Chunker, model string) *LocalEngine {
	return &LocalEngine{embedder: embedder, chunker: chunker, model: model}
}

func (e *LocalEngine) Build(ctx context.Context, dir string, docs []Document) error {

	if len(docs) == 0 {
		return common.ErrNoDocuments
	}

	var chunks []storedChunk
	for _, doc := range docs {
		for _, text := range e.chunker.Chunk(doc.Content) {
			chunks = append(chunks, storedChunk{Source: doc.Name, Text: text})
		}
	}
	if len(chunks) == 0 {
		return common.ErrNoDocuments
	}

	if err := e.embedAll(ctx, chunks); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, vectorsFileName))
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(chunks); err != nil {
		f.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}

	return writeManifest(dir, manifest{
		Engine:    "local",
		Model:     e.model,
		Chunks:    len(chunks),
		CreatedAt: time.Now().UTC(),
	})
}

// embedAll fills in the Vector field of every chunk, batching requests and
// running a bounded number of them concurrently.
func (e *LocalEngine) embedAll(ctx context.Context, chunks []storedChunk) error {

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	var mu sync.Mutex

	for start := 0; start < len(chunks); start += embedBatchSize {
		batch := chunks[start:min(start+embedBatchSize, len(chunks))]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}

			vectors, err := e.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for i := range batch {
				batch[i].Vector = normalize(vectors[i])
			}
			return nil
		})
	}

	return g.Wait()
}

func (e *LocalEngine) Open(ctx context.Context, dir string) (Index, error) {

	if _, err := readManifest(dir); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, vectorsFileName))
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var chunks []storedChunk
	if err := gob.NewDecoder(f).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	return &localIndex{embedder: e.embedder, chunks: chunks}, nil
}

// Drop is a no-op for the local engine: the index holds no resources
// outside its directory.
func (e *LocalEngine) Drop(ctx context.Context, dir string) error {
	return nil
}

type localIndex struct {
	embedder Embedder
	chunks   []storedChunk
}

func (idx *localIndex) Search(ctx context.Context, question string, topK int) ([]Fragment, error) {

	vectors, err := idx.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	query := normalize(vectors[0])

	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, len(idx.chunks))
	for i, c := range idx.chunks {
		scores[i] = scored{i: i, score: dot(c.Vector, query)}
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	if topK > len(scores) {
		topK = len(scores)
	}

	fragments := make([]Fragment, 0, topK)
	for _, s := range scores[:topK] {
		c := idx.chunks[s.i]
		fragments = append(fragments, Fragment{Text: c.Text, Source: c.Source, Score: s.score})
	}
	return fragments, nil
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func writeManifest(dir string, m manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), data, 0o640); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// readManifest returns common.ErrNoIndex when the directory holds no valid
// index, which is the expected state before the first build or right after
// a purge.
func readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrNoIndex
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m := &manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}
