// Package favorites caches the set of favorited documents and applies
// toggles optimistically, rolling back when the server rejects one.
package favorites

import (
	"context"

	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

// Remote is the slice of the remote client the cache needs.
type Remote interface {
	ListFavorites(ctx context.Context) ([]model.FavoriteEntry, error)
	ToggleFavorite(ctx context.Context, filename string) (bool, error)
}

// Cache is the local favorite set. Loaded once per page lifetime.
type Cache struct {
	remote Remote
	log    *logger.Logger
	set    map[string]bool
}

// New creates an empty cache; call Load to populate it.
func New(remote Remote, log *logger.Logger) *Cache {
	return &Cache{
		remote: remote,
		log:    log,
		set:    make(map[string]bool),
	}
}

// Load replaces the local set with the server's favorites.
func (c *Cache) Load(ctx context.Context) error {
	entries, err := c.remote.ListFavorites(ctx)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.Filename] = true
	}
	c.set = set
	return nil
}

// IsFavorite reports whether filename is currently favorited.
func (c *Cache) IsFavorite(filename string) bool {
	return c.set[filename]
}

// All returns the favorited filenames. Order is unspecified.
func (c *Cache) All() []string {
	names := make([]string, 0, len(c.set))
	for name := range c.set {
		names = append(names, name)
	}
	return names
}

// Toggle flips filename's favorite state locally, then confirms with
// the server. A rejection reverts the local flip; on success the
// server's settled state is adopted, whichever way it landed.
func (c *Cache) Toggle(ctx context.Context, filename string) (bool, error) {
	before := c.set[filename]

	err := Optimistic(
		func() { c.apply(filename, !before) },
		func() { c.apply(filename, before) },
		func() error {
			settled, err := c.remote.ToggleFavorite(ctx, filename)
			if err != nil {
				return err
			}
			c.apply(filename, settled)
			return nil
		},
	)
	if err != nil {
		c.log.Warn("favorite toggle rejected",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return before, err
	}
	return c.set[filename], nil
}

func (c *Cache) apply(filename string, favorite bool) {
	if favorite {
		c.set[filename] = true
	} else {
		delete(c.set, filename)
	}
}

// Optimistic runs a local mutation ahead of its confirmation: apply
// takes effect immediately, commit awaits the server, and revert undoes
// apply when commit fails. Nothing is retried.
func Optimistic(apply, revert func(), commit func() error) error {
	apply()
	if err := commit(); err != nil {
		revert()
		return err
	}
	return nil
}
