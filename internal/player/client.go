// ABOUTME: HTTP client for raw PCM streams
// ABOUTME: Requests a stream and reads its format from the response headers
package player

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
)

// Stream is an open raw PCM response
type Stream struct {
	URL  string
	Info rawpcm.Info
	Body io.ReadCloser
}

// Close closes the response body
func (s *Stream) Close() error {
	return s.Body.Close()
}

// Open requests url and validates the raw stream headers.
// A nil client uses http.DefaultClient.
func Open(ctx context.Context, client *http.Client, url string) (*Stream, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	info, err := rawpcm.ParseHeaders(resp.Header)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &Stream{URL: url, Info: info, Body: resp.Body}, nil
}
