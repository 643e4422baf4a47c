// Package remote is the HTTP client for the conversation store.
//
// Every operation is a single request/response exchange with no
// retries. Failures are normalized into two kinds: ErrNotFound for a
// 404, ErrUnavailable for everything else. Callers must treat them
// differently, since only a 404 proves a stored identifier is dead.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

var (
	// ErrNotFound means the resource no longer exists on the server.
	ErrNotFound = errors.New("remote: not found")
	// ErrUnavailable covers network failures and non-404 error statuses.
	ErrUnavailable = errors.New("remote: unavailable")
	// ErrEmptyQuery rejects a blank question before any network call.
	ErrEmptyQuery = errors.New("remote: empty query")
)

// Client talks to the conversation store API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// List returns all conversation summaries, newest first as ordered by
// the server.
func (c *Client) List(ctx context.Context) ([]model.ConversationSummary, error) {
	var out model.ListConversationsResponse
	if err := c.do(ctx, http.MethodGet, "/conversations/", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// FetchOne returns the full conversation for id. A 404 surfaces as
// ErrNotFound so the caller can invalidate its stored binding.
func (c *Client) FetchOne(ctx context.Context, id string) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+id+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOne removes the conversation for id.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+id+"/", nil, nil)
}

// Query sends a question. conversationID and pdfContext may be empty;
// a new conversation is created server-side when conversationID is.
func (c *Client) Query(ctx context.Context, text, conversationID, pdfContext string) (*model.QueryResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	req := model.QueryRequest{
		Query:          text,
		ConversationID: conversationID,
		PDFContext:     pdfContext,
	}
	var out model.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TogglePin flips the pinned state of a conversation and returns the
// state the server settled on.
func (c *Client) TogglePin(ctx context.Context, id string) (bool, error) {
	var out model.TogglePinResponse
	if err := c.do(ctx, http.MethodPost, "/conversations/"+id+"/pin/", nil, &out); err != nil {
		return false, err
	}
	return out.IsPinned, nil
}

// Rename replaces a conversation's title.
func (c *Client) Rename(ctx context.Context, id, title string) error {
	req := model.RenameRequest{Title: title}
	return c.do(ctx, http.MethodPost, "/conversations/"+id+"/rename/", req, nil)
}

// ToggleFavorite flips the favorite state of a document and returns
// the state the server settled on.
func (c *Client) ToggleFavorite(ctx context.Context, filename string) (bool, error) {
	req := map[string]string{"filename": filename}
	var out model.ToggleFavoriteResponse
	if err := c.do(ctx, http.MethodPost, "/api/favorites/toggle/", req, &out); err != nil {
		return false, err
	}
	return out.IsFavorite, nil
}

// ListFavorites returns all favorited documents.
func (c *Client) ListFavorites(ctx context.Context) ([]model.FavoriteEntry, error) {
	var out model.ListFavoritesResponse
	if err := c.do(ctx, http.MethodGet, "/api/favorites/list/", nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

// Library returns the document library listing.
func (c *Client) Library(ctx context.Context) ([]model.DocumentInfo, error) {
	var out model.LibraryResponse
	if err := c.do(ctx, http.MethodGet, "/pdf-library/", nil, &out); err != nil {
		return nil, err
	}
	return out.PDFs, nil
}

// Status returns the server's identity and processing counts. The
// instance ID changes on every server restart, which lets the client
// notice that stored conversation IDs may have been invalidated.
func (c *Client) Status(ctx context.Context) (*model.SystemStatus, error) {
	var out model.SystemStatus
	if err := c.do(ctx, http.MethodGet, "/system-status/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do runs one exchange and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Correlation-ID", uuid.Must(uuid.NewV7()).String())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		c.log.Warn("unexpected status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d on %s %s", ErrUnavailable, resp.StatusCode, method, path)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
