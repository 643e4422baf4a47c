// Package controller wires the session identity, remote client,
// renderer, history list, favorites and library into one page-scoped
// coordinator.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/favorites"
	"github.com/docquery-ai/document-assistant/internal/history"
	"github.com/docquery-ai/document-assistant/internal/library"
	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/internal/remote"
	"github.com/docquery-ai/document-assistant/internal/render"
	"github.com/docquery-ai/document-assistant/internal/session"
	"github.com/docquery-ai/document-assistant/internal/storage"
	"github.com/docquery-ai/document-assistant/pkg/logger"
	"github.com/docquery-ai/document-assistant/pkg/metrics"
)

// ServerInstanceKey is the durable key remembering which server boot
// the stored bindings belong to.
const ServerInstanceKey = "server_instance"

// ErrStaleResponse means a query response arrived after the active
// conversation changed and was discarded instead of rendered.
var ErrStaleResponse = errors.New("controller: stale query response discarded")

// API is the remote surface the controller depends on.
type API interface {
	List(ctx context.Context) ([]model.ConversationSummary, error)
	FetchOne(ctx context.Context, id string) (*model.Conversation, error)
	DeleteOne(ctx context.Context, id string) error
	Query(ctx context.Context, text, conversationID, pdfContext string) (*model.QueryResponse, error)
	TogglePin(ctx context.Context, id string) (bool, error)
	Rename(ctx context.Context, id, title string) error
	ToggleFavorite(ctx context.Context, filename string) (bool, error)
	ListFavorites(ctx context.Context) ([]model.FavoriteEntry, error)
	Library(ctx context.Context) ([]model.DocumentInfo, error)
	Status(ctx context.Context) (*model.SystemStatus, error)
}

// Controller is the page-scoped coordinator. The scope is fixed at
// construction and never changes for the controller's lifetime.
type Controller struct {
	scope    session.Scope
	identity *session.Identity
	api      API
	durable  storage.Store
	log      *logger.Logger

	History   *history.Controller
	Favorites *favorites.Cache
	Library   *library.Library
}

// New builds a controller for the given scope.
func New(scope session.Scope, api API, durable storage.Store, ephemeral *storage.SessionStore, log *logger.Logger) *Controller {
	log = log.WithScope(scope.String())
	return &Controller{
		scope:    scope,
		identity: session.NewIdentity(scope, durable, ephemeral),
		api:      api,
		durable:  durable,
		log:      log,

		History:   history.New(api, log),
		Favorites: favorites.New(api, log),
		Library:   library.New(api),
	}
}

// Scope returns the controller's fixed scope.
func (c *Controller) Scope() session.Scope {
	return c.scope
}

// Identity exposes the session identity store.
func (c *Controller) Identity() *session.Identity {
	return c.identity
}

// Restore tries to resume a previous conversation: a one-shot restore
// flag wins over the stored binding for this scope. Returns the
// restored conversation, or nil when there is nothing to resume.
//
// Only a NotFound answer removes the stored binding. A transient
// failure leaves both the pending identifier and the binding in place
// so the next load can retry.
func (c *Controller) Restore(ctx context.Context) (*model.Conversation, error) {
	id, ok := c.identity.TakeRestoreID()
	if !ok {
		id = c.identity.StoredID()
	}
	if id == "" {
		return nil, nil
	}

	if err := c.identity.Adopt(id); err != nil {
		return nil, err
	}

	conv, err := c.api.FetchOne(ctx, id)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			c.log.Info("stored conversation gone, clearing binding", zap.String("conversation_id", id))
			metrics.SessionRestoresTotal.WithLabelValues("not_found").Inc()
			if rerr := c.identity.Reject(); rerr != nil {
				return nil, rerr
			}
			return nil, nil
		}
		c.log.Warn("restore failed, will retry next load", zap.Error(err))
		metrics.SessionRestoresTotal.WithLabelValues("unavailable").Inc()
		return nil, err
	}

	if err := c.identity.Confirm(); err != nil {
		return nil, err
	}
	metrics.SessionRestoresTotal.WithLabelValues("restored").Inc()
	c.log.Info("conversation restored",
		zap.String("conversation_id", id),
		zap.Int("messages", len(conv.Messages)),
	)
	return conv, nil
}

// Send submits a question in this scope. The conversation active at
// send time is captured so a response that arrives after the context
// changed is discarded rather than rendered over the newer one. On
// success the returned conversation ID is adopted and persisted.
func (c *Controller) Send(ctx context.Context, text string) (*render.Display, error) {
	activeAtSend := c.identity.Current()

	resp, err := c.api.Query(ctx, text, activeAtSend, c.scope.Document())
	if err != nil {
		return nil, err
	}

	if c.identity.Current() != activeAtSend {
		c.log.Info("discarding stale response",
			zap.String("sent_for", activeAtSend),
			zap.String("now_active", c.identity.Current()),
		)
		return nil, ErrStaleResponse
	}

	if err := c.identity.ContinueWith(resp.ConversationID); err != nil {
		return nil, err
	}

	display := render.Render(*resp)
	return &display, nil
}

// NewConversation unbinds the current conversation so the next query
// starts a fresh one. The remote conversation is kept.
func (c *Controller) NewConversation() error {
	return c.identity.Clear()
}

// DeleteCurrent deletes the active conversation on the server, then
// unbinds and drops it from the local history list. A failed delete
// leaves all state unchanged.
func (c *Controller) DeleteCurrent(ctx context.Context) error {
	// A pending identifier is not a confirmed conversation yet, so
	// there is nothing to delete until the restore round-trips.
	if c.identity.State() != session.Bound {
		return session.ErrNotBound
	}
	id := c.identity.Current()
	if err := c.api.DeleteOne(ctx, id); err != nil {
		return err
	}
	c.History.Remove(id)
	return c.identity.Clear()
}

// PinCurrent toggles the pinned state of the active conversation and
// returns the state the server settled on.
func (c *Controller) PinCurrent(ctx context.Context) (bool, error) {
	if c.identity.State() != session.Bound {
		return false, session.ErrNotBound
	}
	return c.api.TogglePin(ctx, c.identity.Current())
}

// RenameCurrent retitles the active conversation on the server, then
// mirrors the change into the local history list. A failed rename
// leaves the local title unchanged.
func (c *Controller) RenameCurrent(ctx context.Context, title string) error {
	if c.identity.State() != session.Bound {
		return session.ErrNotBound
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("controller: title cannot be empty")
	}
	id := c.identity.Current()
	if err := c.api.Rename(ctx, id, title); err != nil {
		return err
	}
	c.History.Rename(id, title)
	return nil
}

// Open switches to an existing conversation by ID, fetching it first
// so a dead ID is never bound.
func (c *Controller) Open(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := c.api.FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.identity.ContinueWith(conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}

// VerifyServerInstance compares the server's boot identity with the
// remembered one. A restarted server may have dropped conversations,
// so on mismatch the scope binding is cleared before the new identity
// is remembered.
func (c *Controller) VerifyServerInstance(ctx context.Context) (changed bool, err error) {
	status, err := c.api.Status(ctx)
	if err != nil {
		return false, err
	}

	previous, err := c.durable.Get(ServerInstanceKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	if previous != "" && previous != status.ServerInstanceID {
		c.log.Info("server instance changed, clearing binding",
			zap.String("previous", previous),
			zap.String("current", status.ServerInstanceID),
		)
		if cerr := c.identity.Clear(); cerr != nil {
			return true, cerr
		}
		changed = true
	}
	return changed, c.durable.Set(ServerInstanceKey, status.ServerInstanceID)
}

// Transcript fetches the active conversation and renders it as plain
// text for export.
func (c *Controller) Transcript(ctx context.Context) (string, error) {
	id := c.identity.Current()
	if id == "" {
		return "", session.ErrNotBound
	}
	conv, err := c.api.FetchOne(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", conv.Title)
	fmt.Fprintf(&b, "%s\n\n", conv.CreatedAt.Format("Jan 2, 2006 3:04 PM"))
	for _, msg := range conv.Messages {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Sender, msg.Content)
		for _, cit := range msg.Citations {
			fmt.Fprintf(&b, "    source: %s\n", cit.SourcePDF)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
