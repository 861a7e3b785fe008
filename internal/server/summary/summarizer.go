// Package summary produces a summary of one transcript by summarizing
// fixed-size windows independently and concatenating the results. It talks
// straight to the model collaborator and never touches the index.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tubequery/internal/common"
)

const summaryPrompt = "Summarize the following transcript fragment in a few sentences."

// Completer is the model collaborator producing one summary per window.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Summarizer struct {
	completer Completer
	window    int
}

func NewSummarizer(completer Completer, window int) *Summarizer {
	if window <= 0 {
		window = 1000
	}
	return &Summarizer{completer: completer, window: window}
}

// Summarize splits transcript into windows of the configured size and
// summarizes each in order. A failure on any window aborts the whole call.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {

	if transcript == "" {
		return "", common.ErrorInvalidInput
	}

	var parts []string
	for start := 0; start < len(transcript); start += s.window {
		window := transcript[start:min(start+s.window, len(transcript))]

		part, err := s.completer.Complete(ctx, summaryPrompt, window)
		if err != nil {
			return "", fmt.Errorf("summarizing window: %w", err)
		}
		parts = append(parts, strings.TrimSpace(part))
	}

	return strings.Join(parts, " "), nil
}
