package ai

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tubequery/internal/common"
)

// Embedder produces embedding vectors for a batch of texts via the
// /embeddings endpoint.
type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

// EmbedBatch returns one vector per input text, in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {

	if len(texts) == 0 {
		return nil, nil
	}

	req := struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{Input: texts, Model: e.model}

	var resp struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}

	if err := e.client.postJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", common.ErrUpstream, len(texts), len(resp.Data))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: malformed embedding response", common.ErrUpstream)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}
