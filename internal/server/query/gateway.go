// Package query answers one natural-language question against a user's
// last-built index: retrieve top-K fragments, drop the weakly relevant
// ones, and hand the rest to the synthesis collaborator.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tubequery/internal/logging"
	"github.com/dmitrijs2005/tubequery/internal/server/namespace"
	"github.com/dmitrijs2005/tubequery/internal/server/rag"
)

const synthesisPrompt = "You are a helpful assistant. Answer the question using only the provided context. If the context does not contain the answer, say so."

// Synthesizer turns retained fragments plus a question into an answer.
type Synthesizer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Gateway struct {
	allocator    *namespace.Allocator
	locker       *namespace.Locker
	engine       rag.Engine
	synthesizer  Synthesizer
	topK         int
	minRelevance float64
	logger       logging.Logger
}

func NewGateway(allocator *namespace.Allocator, locker *namespace.Locker, engine rag.Engine, synthesizer Synthesizer, topK int, minRelevance float64, logger logging.Logger) *Gateway {
	return &Gateway{
		allocator:    allocator,
		locker:       locker,
		engine:       engine,
		synthesizer:  synthesizer,
		topK:         topK,
		minRelevance: minRelevance,
		logger:       logger.With("module", "query_gateway"),
	}
}

// Query opens the user's index read-only and answers question.
// common.ErrNoIndex is returned when no index has been built yet, which
// callers should distinguish from engine failure. The index is never
// mutated.
func (g *Gateway) Query(ctx context.Context, username, question string) (string, error) {

	unlock := g.locker.RLock(username)
	defer unlock()

	_, indexDir, err := g.allocator.Resolve(username)
	if err != nil {
		return "", err
	}

	idx, err := g.engine.Open(ctx, indexDir)
	if err != nil {
		return "", err
	}

	fragments, err := idx.Search(ctx, question, g.topK)
	if err != nil {
		return "", fmt.Errorf("searching index: %w", err)
	}

	retained := fragments[:0]
	for _, f := range fragments {
		if f.Score >= g.minRelevance {
			retained = append(retained, f)
		}
	}

	g.logger.Debug(ctx, "fragments retrieved", "username", username, "total", len(fragments), "retained", len(retained))

	answer, err := g.synthesizer.Complete(ctx, synthesisPrompt, buildPrompt(retained, question))
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}

	return answer, nil
}

func buildPrompt(fragments []rag.Fragment, question string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	if len(fragments) == 0 {
		sb.WriteString("(no relevant fragments found)\n")
	}
	for _, f := range fragments {
		sb.WriteString("---\n")
		sb.WriteString(f.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
