package library

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"manga_reader/utils"
)

const (
	SourceServer = "server"
	SourceWeb    = "web"
	SourceLocal  = "local"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownSource = errors.New("unknown source")
	ErrNotImage      = errors.New("not an image")
)

// Source lists mangas and chapters and locates chapter pages. Locate must
// only be called for chapters whose PageCount succeeded.
type Source interface {
	Name() string
	Mangas(ctx context.Context) ([]Manga, error)
	Chapters(ctx context.Context, mangaID int) ([]Chapter, error)
	PageCount(ctx context.Context, mangaID, chapterID int) (int, error)
	Locate(mangaID, chapterID, page int) string
}

// Registry holds the sources enabled by the configuration.
type Registry struct {
	sources map[string]Source
	order   []string
	Images  *Fetcher
}

// NewRegistry builds the configured sources. The server source is always
// present; web and local sources only when configured.
func NewRegistry(cfg utils.Config, log *zap.Logger) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	client := newHTTPClient(cfg.ServerTimeout())
	attempts := uint(cfg.Server.Retries)

	r.add(NewServerSource(cfg.Server.URL, client, attempts, log.Named(SourceServer)))
	if len(cfg.Web) > 0 {
		r.add(NewWebSource(cfg.Web, client, attempts, log.Named(SourceWeb)))
	}
	if len(cfg.Library.Paths) > 0 {
		r.add(NewLocalSource(cfg.Library.Paths, log.Named(SourceLocal)))
	}
	r.Images = NewFetcher(client, attempts, log.Named("images"))
	return r
}

func (r *Registry) add(s Source) {
	r.sources[s.Name()] = s
	r.order = append(r.order, s.Name())
}

// Get returns the source registered under name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownSource)
	}
	return s, nil
}

// Names lists sources in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
