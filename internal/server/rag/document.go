// Package rag defines the narrow contract between the user-lifecycle core
// and the external retrieval machinery, plus the two engine implementations
// behind it: a local persisted vector store and a Chroma-backed store.
package rag

import "context"

// Document is one raw ingested transcript handed to an engine at build time.
type Document struct {
	Name    string
	Content string
}

// Fragment is a retrieved piece of a document with its relevance score.
// Scores are similarities: higher means more relevant, regardless of engine.
type Fragment struct {
	Text   string
	Source string
	Score  float64
}

// Index is a read-only view over one user's built index.
type Index interface {
	Search(ctx context.Context, question string, topK int) ([]Fragment, error)
}

// Engine builds, opens and releases per-user derived indexes. Build must
// write into dir so that the index only becomes valid once complete; Open
// must return common.ErrNoIndex when dir holds no valid index. Drop releases
// engine-side resources tied to the index in dir (the caller removes the
// directory itself).
type Engine interface {
	Build(ctx context.Context, dir string, docs []Document) error
	Open(ctx context.Context, dir string) (Index, error)
	Drop(ctx context.Context, dir string) error
}
