package ai

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tubequery/internal/common"
)

// Chat asks an OpenAI-compatible /chat/completions endpoint for a single
// completion. It is the synthesis collaborator used by the query gateway
// and the summarizer.
type Chat struct {
	client *Client
	model  string
}

func NewChat(client *Client, model string) *Chat {
	return &Chat{client: client, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends a system prompt and a user prompt and returns the first
// choice's content.
func (c *Chat) Complete(ctx context.Context, system, user string) (string, error) {

	req := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}

	if err := c.client.postJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", common.ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}
