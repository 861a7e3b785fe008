// Package transcript fetches video transcripts. The fetcher is an external
// collaborator behind a narrow interface so handlers and tests can swap it.
package transcript

import "context"

// Fetcher resolves a video URL to its plain-text transcript.
type Fetcher interface {
	Fetch(ctx context.Context, videoURL string) (string, error)
}
