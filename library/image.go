package library

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// Fetcher retrieves page images from load identifiers produced by sources.
type Fetcher struct {
	client   *http.Client
	attempts uint
	log      *zap.Logger
}

func NewFetcher(client *http.Client, attempts uint, log *zap.Logger) *Fetcher {
	if attempts == 0 {
		attempts = 1
	}
	return &Fetcher{client: client, attempts: attempts, log: log}
}

// Fetch returns the raw image bytes behind loc: an http(s) URL or a file path.
func (f *Fetcher) Fetch(ctx context.Context, loc string) ([]byte, error) {
	var data []byte
	switch {
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		res, err := fetch(ctx, f.client, loc, f.attempts, f.log)
		if err != nil {
			return nil, err
		}
		data = res.body
	case strings.Contains(loc, "://"):
		return nil, fmt.Errorf("%s: %w", loc, ErrNotFound)
	default:
		b, err := os.ReadFile(loc)
		if err != nil {
			return nil, err
		}
		data = b
	}

	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("%s (%s): %w", loc, kind.MIME.Value, ErrNotImage)
	}
	return data, nil
}
