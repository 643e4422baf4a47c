package devserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/internal/remote"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

// newTestServer serves the full API and returns a remote client wired
// to it, exercising both sides of the wire format.
func newTestServer(t *testing.T) (*Store, *remote.Client) {
	t.Helper()

	store := seededStore()
	h := NewHandler(store, logger.NewNop())
	r := chi.NewRouter()
	h.Register(r)
	r.Get("/health", h.Health)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return store, remote.NewClient(srv.URL, 5*time.Second, logger.NewNop())
}

func TestQueryRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "what are the lease terms?", "", "lease-agreement.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConversationID)
	assert.True(t, resp.HasRelevantInfo)
	assert.Equal(t, "lease-agreement.pdf", resp.ScopedToDocument)

	conv, err := client.FetchOne(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resp.ConversationID, list[0].ID)
}

func TestFetchUnknownConversationIs404(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.FetchOne(context.Background(), "0191e348-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestDeleteRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "short lived question", "", "")
	require.NoError(t, err)

	require.NoError(t, client.DeleteOne(ctx, resp.ConversationID))
	err = client.DeleteOne(ctx, resp.ConversationID)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestQueryContinuesConversationOverWire(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	first, err := client.Query(ctx, "first question", "", "")
	require.NoError(t, err)

	second, err := client.Query(ctx, "follow up", first.ConversationID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	conv, err := client.FetchOne(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 4)
}

func TestQueryForDeadConversationIs404(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "about to vanish", "", "")
	require.NoError(t, err)
	require.NoError(t, client.DeleteOne(ctx, resp.ConversationID))

	_, err = client.Query(ctx, "too late", resp.ConversationID, "")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestOversizedQueryRejectedServerSide(t *testing.T) {
	store, client := newTestServer(t)

	// Passes the client-side blank check but trips server validation.
	huge := strings.Repeat("a", 100001)
	_, err := client.Query(context.Background(), huge, "", "")
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.Empty(t, store.List())
}

func TestPinAndRenameRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "what are the lease terms?", "", "")
	require.NoError(t, err)

	pinned, err := client.TogglePin(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.True(t, pinned)

	require.NoError(t, client.Rename(ctx, resp.ConversationID, "Lease terms"))

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsPinned)
	assert.Equal(t, "Lease terms", list[0].Title)

	pinned, err = client.TogglePin(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.False(t, pinned)
}

func TestPinUnknownConversationIs404(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.TogglePin(context.Background(), "0191e348-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestRenameRejectsBlankTitle(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "hello there", "", "")
	require.NoError(t, err)

	err = client.Rename(ctx, resp.ConversationID, "   ")
	assert.ErrorIs(t, err, remote.ErrUnavailable)

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello there", list[0].Title)
}

func TestFavoritesRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	fav, err := client.ToggleFavorite(ctx, "quarterly-report.pdf")
	require.NoError(t, err)
	assert.True(t, fav)

	entries, err := client.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "quarterly-report.pdf", entries[0].Filename)

	fav, err = client.ToggleFavorite(ctx, "quarterly-report.pdf")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestLibraryAndStatusEndpoints(t *testing.T) {
	store, client := newTestServer(t)
	ctx := context.Background()

	docs, err := client.Library(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Status().ServerInstanceID, status.ServerInstanceID)
	assert.Equal(t, 1, status.Processing)
}

func TestToggleFavoriteRejectsPathTraversal(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.ToggleFavorite(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, remote.ErrUnavailable)
}

func TestConversationFavoriteFlagFollowsDocuments(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "lease details", "", "lease-agreement.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Citations)

	conv, err := client.FetchOne(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.False(t, conv.IsFavorite)

	_, err = client.ToggleFavorite(ctx, "lease-agreement.pdf")
	require.NoError(t, err)

	conv, err = client.FetchOne(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.True(t, conv.IsFavorite)
}

func TestSummaryShapeOverWire(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, "report question", "", "quarterly-report.pdf")
	require.NoError(t, err)

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	var summary model.ConversationSummary = list[0]
	assert.Equal(t, resp.ConversationID, summary.ID)
	assert.True(t, summary.HasDocuments)
	assert.False(t, summary.UpdatedAt.IsZero())
}
