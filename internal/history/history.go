// Package history maintains the conversation history list: an
// immutable fetched baseline plus a non-destructive text filter.
package history

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

// Lister is the slice of the remote client the controller needs.
type Lister interface {
	List(ctx context.Context) ([]model.ConversationSummary, error)
}

// Controller holds the baseline list and answers filter queries
// against it without mutating or re-fetching it. A fetch failure is
// retained as a tagged state so callers can tell "empty" from
// "broken".
type Controller struct {
	lister Lister
	log    *logger.Logger

	baseline []model.ConversationSummary
	loadErr  error
	loaded   bool
}

// New creates an empty controller; call Load to populate it.
func New(lister Lister, log *logger.Logger) *Controller {
	return &Controller{lister: lister, log: log}
}

// Load fetches the full list and replaces the baseline. On failure the
// previous baseline is kept and the error is retained for Err.
func (c *Controller) Load(ctx context.Context) error {
	items, err := c.lister.List(ctx)
	if err != nil {
		c.log.Warn("history fetch failed", zap.Error(err))
		c.loadErr = err
		return err
	}
	c.baseline = items
	c.loadErr = nil
	c.loaded = true
	return nil
}

// Err returns the error from the most recent Load, or nil.
func (c *Controller) Err() error {
	return c.loadErr
}

// Loaded reports whether at least one Load has succeeded.
func (c *Controller) Loaded() bool {
	return c.loaded
}

// Baseline returns a copy of the unfiltered list in server order.
func (c *Controller) Baseline() []model.ConversationSummary {
	return append([]model.ConversationSummary(nil), c.baseline...)
}

// Filter returns the baseline items matching query. The query is
// lower-cased and split on whitespace; an item matches only if every
// term is a substring of its title plus formatted update time. An
// empty query returns the full baseline in original order.
func (c *Controller) Filter(query string) []model.ConversationSummary {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return c.Baseline()
	}

	var matched []model.ConversationSummary
	for _, item := range c.baseline {
		haystack := strings.ToLower(item.Title + " " + formatTimestamp(item.UpdatedAt))
		if matchesAll(haystack, terms) {
			matched = append(matched, item)
		}
	}
	return matched
}

// Remove deletes id from the baseline. The caller is responsible for
// the remote delete; this only updates the local copy.
func (c *Controller) Remove(id string) {
	kept := c.baseline[:0]
	for _, item := range c.baseline {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	c.baseline = kept
}

// Rename updates the title of id in the baseline. The caller is
// responsible for the remote rename; this only updates the local copy.
func (c *Controller) Rename(id, title string) {
	for i := range c.baseline {
		if c.baseline[i].ID == id {
			c.baseline[i].Title = title
			return
		}
	}
}

// formatTimestamp renders an update time the way the list shows it,
// so date terms like "jan" or "2026" can match.
func formatTimestamp(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

func matchesAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
