package tiered

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/afero"
)

const maxPayloadBytes = 4 << 20

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// HTTPSource fetches url with client. An empty url makes the source unavailable.
func HTTPSource(name string, client *http.Client, url string) Source {
	url = strings.TrimSpace(url)
	if url == "" {
		return Source{Name: name}
	}
	if client == nil {
		client = http.DefaultClient
	}

	return Source{
		Name: name,
		Retrieve: func(ctx context.Context) ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, fmt.Errorf("build request: %w", err)
			}
			req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.5")

			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
				return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
			}
			return io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
		},
	}
}

// FileSource reads path from fs. An empty path or nil fs makes the source unavailable.
func FileSource(name string, fs afero.Fs, path string) Source {
	path = strings.TrimSpace(path)
	if path == "" || fs == nil {
		return Source{Name: name}
	}

	return Source{
		Name: name,
		Retrieve: func(_ context.Context) ([]byte, error) {
			raw, err := afero.ReadFile(fs, path)
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s does not exist", ErrUnavailable, path)
			}
			return raw, err
		},
	}
}
