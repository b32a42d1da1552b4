package feed

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

const fetchUserAgent = "curl/7.54.1"

// fetch downloads a feed body, retrying transient failures with
// exponential backoff. A failed cycle is reported to the caller and
// retried on the next poll, never treated as fatal
func fetch(ctx context.Context, client *http.Client, definition Definition) ([]byte, error) {
	operation := func() ([]byte, error) {
		requestCtx, cancel := context.WithTimeout(ctx, definition.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, definition.Source, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		req.Header.Set("User-Agent", fetchUserAgent)
		req.Header.Set("Accept-Encoding", "gzip")

		if definition.Username != "" {
			req.SetBasicAuth(definition.Username, definition.Password)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
		}

		body := resp.Body
		if resp.Header.Get("Content-Encoding") == "gzip" {
			gzipReader, err := gzip.NewReader(resp.Body)
			if err != nil {
				return nil, err
			}
			defer gzipReader.Close()
			body = gzipReader
		}

		return io.ReadAll(body)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	return backoff.RetryWithData(operation, policy)
}
