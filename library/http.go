package library

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

const (
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
	maxBodyBytes = 64 << 20
)

var defaultRetryDelay = 300 * time.Millisecond

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

type response struct {
	body   []byte
	header http.Header
}

// fetch GETs url, retrying network errors and 5xx responses. 404 maps to
// ErrNotFound; other 4xx responses fail immediately.
func fetch(ctx context.Context, client *http.Client, url string, attempts uint, log *zap.Logger) (response, error) {
	var res response
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", userAgent)

			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(fmt.Errorf("GET %s: %w", url, ErrNotFound))
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return retry.Unrecoverable(&StatusError{URL: url, Code: resp.StatusCode})
			case resp.StatusCode != http.StatusOK:
				return &StatusError{URL: url, Code: resp.StatusCode}
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return err
			}
			res = response{body: body, header: resp.Header}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(defaultRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("Retrying request", zap.String("url", url), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	return res, err
}
