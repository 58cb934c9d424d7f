package llmutils

import (
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
)

// DefaultDownloadLimit is the max body size read by DownloadText.
const DefaultDownloadLimit = 8 << 20

// DownloadText fetches the content from the given URL.
// Non-2xx responses are returned as errors, the body is capped at limit bytes,
// or DefaultDownloadLimit when limit is not positive.
func DownloadText(ctx context.Context, client *http.Client, url string, limit int64) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if limit <= 0 {
		limit = DefaultDownloadLimit
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Newf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}
	return string(data), nil
}
