package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/common"
)

const defaultTimedTextURL = "https://video.google.com/timedtext"

// YouTubeFetcher retrieves caption tracks from the timedtext endpoint and
// joins the caption lines into one plain-text transcript.
type YouTubeFetcher struct {
	baseURL    string
	lang       string
	httpClient *http.Client
}

func NewYouTubeFetcher() *YouTubeFetcher {
	return &YouTubeFetcher{
		baseURL:    defaultTimedTextURL,
		lang:       "en",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewYouTubeFetcherWithBase is used by tests to point at a fake endpoint.
func NewYouTubeFetcherWithBase(baseURL string) *YouTubeFetcher {
	f := NewYouTubeFetcher()
	f.baseURL = baseURL
	return f
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

func (f *YouTubeFetcher) Fetch(ctx context.Context, videoURL string) (string, error) {

	videoID, err := extractVideoID(videoURL)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s?lang=%s&v=%s", f.baseURL, url.QueryEscape(f.lang), url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", common.ErrUpstream, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUpstream, err)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("%w: parsing captions: %v", common.ErrUpstream, err)
	}

	parts := make([]string, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := strings.TrimSpace(line.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no captions for video %s", common.ErrUpstream, videoID)
	}

	return strings.Join(parts, " "), nil
}

// extractVideoID pulls the v= query parameter from a watch URL.
func extractVideoID(videoURL string) (string, error) {
	u, err := url.Parse(videoURL)
	if err != nil {
		return "", common.ErrorInvalidInput
	}
	id := u.Query().Get("v")
	if id == "" {
		return "", common.ErrorInvalidInput
	}
	return id, nil
}
