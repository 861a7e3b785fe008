package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/google/uuid"
)

const sourceAttribute = "source"

// ChromaEngine keeps the derived index in a Chroma collection. Each build
// creates a fresh generation collection; the manifest file inside the index
// region names the live one, so swapping the region directory atomically
// swaps the visible index. Drop deletes the collection the manifest names.
type ChromaEngine struct {
	client  chromaClient
	ef      embeddings.EmbeddingFunction
	chunker *Chunker
}

// chromaClient is the subset of the Chroma API client the engine uses.
type chromaClient interface {
	GetOrCreateCollection(ctx context.Context, name string, opts ...chroma.CreateCollectionOption) (chroma.Collection, error)
	DeleteCollection(ctx context.Context, name string, opts ...chroma.DeleteCollectionOption) error
}

func NewChromaEngine(client chroma.Client, ef embeddings.EmbeddingFunction, chunker *Chunker) *ChromaEngine {
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	return &ChromaEngine{client: client, ef: ef, chunker: chunker}
}

// collectionOpts pins the cosine distance space so scores convert to
// similarity the same way as the local engine, and attaches the embedding
// function when one is configured.
func (e *ChromaEngine) collectionOpts() []chroma.CreateCollectionOption {
	opts := []chroma.CreateCollectionOption{
		chroma.WithHNSWSpaceCreate(embeddings.COSINE),
	}
	if e.ef != nil {
		opts = append(opts, chroma.WithEmbeddingFunctionCreate(e.ef))
	}
	return opts
}

func (e *ChromaEngine) Build(ctx context.Context, dir string, docs []Document) error {

	if len(docs) == 0 {
		return common.ErrNoDocuments
	}

	name := "tq-" + uuid.NewString()

	col, err := e.client.GetOrCreateCollection(ctx, name, e.collectionOpts()...)
	if err != nil {
		return fmt.Errorf("%w: creating collection: %v", common.ErrUpstream, err)
	}

	total := 0
	for _, doc := range docs {
		// whole transcripts exceed embedding input limits; chunk exactly
		// like the local engine so fragments mean the same thing everywhere
		chunks := e.chunker.Chunk(doc.Content)
		if len(chunks) == 0 {
			continue
		}

		metadatas := make([]chroma.DocumentMetadata, len(chunks))
		for i := range chunks {
			metadatas[i] = chroma.NewDocumentMetadata(chroma.NewStringAttribute(sourceAttribute, doc.Name))
		}

		err := col.Add(ctx,
			chroma.WithTexts(chunks...),
			chroma.WithIDGenerator(chroma.NewULIDGenerator()),
			chroma.WithMetadatas(metadatas...),
		)
		if err != nil {
			// the half-filled generation is unreachable without a manifest;
			// best effort cleanup before surfacing the failure
			_ = e.client.DeleteCollection(ctx, name)
			return fmt.Errorf("%w: adding documents: %v", common.ErrUpstream, err)
		}
		total += len(chunks)
	}
	if total == 0 {
		_ = e.client.DeleteCollection(ctx, name)
		return common.ErrNoDocuments
	}

	return writeManifest(dir, manifest{
		Engine:     "chroma",
		Collection: name,
		Chunks:     total,
		CreatedAt:  time.Now().UTC(),
	})
}

func (e *ChromaEngine) Open(ctx context.Context, dir string) (Index, error) {

	m, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.Collection == "" {
		return nil, common.ErrNoIndex
	}

	col, err := e.client.GetOrCreateCollection(ctx, m.Collection, e.collectionOpts()...)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection: %v", common.ErrUpstream, err)
	}

	return &chromaIndex{col: col}, nil
}

// Drop deletes the collection named by the manifest in dir, if any. A
// missing manifest is not an error: purge must be safe on empty regions.
func (e *ChromaEngine) Drop(ctx context.Context, dir string) error {

	m, err := readManifest(dir)
	if err != nil {
		if errors.Is(err, common.ErrNoIndex) {
			return nil
		}
		return err
	}
	if m.Collection == "" {
		return nil
	}

	if err := e.client.DeleteCollection(ctx, m.Collection); err != nil {
		return fmt.Errorf("%w: deleting collection: %v", common.ErrUpstream, err)
	}
	return nil
}

type chromaIndex struct {
	col chroma.Collection
}

func (idx *chromaIndex) Search(ctx context.Context, question string, topK int) ([]Fragment, error) {

	r, err := idx.col.Query(ctx,
		chroma.WithQueryTexts(question),
		chroma.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", common.ErrUpstream, err)
	}

	docs := r.GetDocumentsGroups()[0]
	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	fragments := make([]Fragment, 0, len(docs))
	for i := range docs {
		source, _ := metadatas[i].GetString(sourceAttribute)
		fragments = append(fragments, Fragment{
			Text:   docs[i].ContentString(),
			Source: source,
			// Chroma reports cosine distance; convert to similarity so
			// callers apply one threshold scale across engines.
			Score: 1 - float64(distances[i]),
		})
	}

	return fragments, nil
}
