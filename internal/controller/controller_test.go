package controller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/internal/remote"
	"github.com/docquery-ai/document-assistant/internal/session"
	"github.com/docquery-ai/document-assistant/internal/storage"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

type fakeAPI struct {
	conversations map[string]*model.Conversation
	queryResp     *model.QueryResponse
	queryErr      error
	fetchErr      error
	deleteErr     error
	renameErr     error
	status        model.SystemStatus

	onQuery    func()
	lastQuery  model.QueryRequest
	deletedIDs []string
}

func (f *fakeAPI) List(ctx context.Context) ([]model.ConversationSummary, error) {
	var out []model.ConversationSummary
	for _, c := range f.conversations {
		out = append(out, model.ConversationSummary{ID: c.ID, Title: c.Title})
	}
	return out, nil
}

func (f *fakeAPI) FetchOne(ctx context.Context, id string) (*model.Conversation, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if c, ok := f.conversations[id]; ok {
		return c, nil
	}
	return nil, remote.ErrNotFound
}

func (f *fakeAPI) DeleteOne(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.conversations, id)
	return nil
}

func (f *fakeAPI) Query(ctx context.Context, text, conversationID, pdfContext string) (*model.QueryResponse, error) {
	f.lastQuery = model.QueryRequest{Query: text, ConversationID: conversationID, PDFContext: pdfContext}
	if f.onQuery != nil {
		f.onQuery()
	}
	return f.queryResp, f.queryErr
}

func (f *fakeAPI) TogglePin(ctx context.Context, id string) (bool, error) {
	c, ok := f.conversations[id]
	if !ok {
		return false, remote.ErrNotFound
	}
	c.IsPinned = !c.IsPinned
	return c.IsPinned, nil
}

func (f *fakeAPI) Rename(ctx context.Context, id, title string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	c, ok := f.conversations[id]
	if !ok {
		return remote.ErrNotFound
	}
	c.Title = title
	return nil
}

func (f *fakeAPI) ToggleFavorite(ctx context.Context, filename string) (bool, error) {
	return false, nil
}

func (f *fakeAPI) ListFavorites(ctx context.Context) ([]model.FavoriteEntry, error) {
	return nil, nil
}

func (f *fakeAPI) Library(ctx context.Context) ([]model.DocumentInfo, error) {
	return nil, nil
}

func (f *fakeAPI) Status(ctx context.Context) (*model.SystemStatus, error) {
	return &f.status, nil
}

func newController(t *testing.T, scope session.Scope, api API) (*Controller, *storage.FileStore, *storage.SessionStore) {
	t.Helper()
	durable, err := storage.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	ephemeral := storage.NewSessionStore()
	return New(scope, api, durable, ephemeral, logger.NewNop()), durable, ephemeral
}

func TestSendBindsNewConversationAndPersists(t *testing.T) {
	api := &fakeAPI{queryResp: &model.QueryResponse{
		Answer:         "Here you go.",
		ConversationID: "conv-new",
	}}
	c, durable, _ := newController(t, session.GlobalScope(), api)

	require.Equal(t, session.Unbound, c.Identity().State())

	display, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, display)

	assert.Equal(t, session.Bound, c.Identity().State())
	assert.Equal(t, "conv-new", c.Identity().Current())
	assert.Empty(t, api.lastQuery.ConversationID)

	stored, err := durable.Get("conversation:global")
	require.NoError(t, err)
	assert.Equal(t, "conv-new", stored)
}

func TestSendInDocumentScopePassesContext(t *testing.T) {
	api := &fakeAPI{queryResp: &model.QueryResponse{ConversationID: "conv-1"}}
	c, durable, _ := newController(t, session.DocumentScope("lease.pdf"), api)

	_, err := c.Send(context.Background(), "what is the term?")
	require.NoError(t, err)

	assert.Equal(t, "lease.pdf", api.lastQuery.PDFContext)
	stored, err := durable.Get("conversation:document:lease.pdf")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", stored)
}

func TestSendDiscardsStaleResponse(t *testing.T) {
	api := &fakeAPI{queryResp: &model.QueryResponse{ConversationID: "conv-old"}}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.Identity().ContinueWith("conv-old"))

	// The active conversation changes while the query is in flight.
	api.onQuery = func() {
		require.NoError(t, c.NewConversation())
	}

	_, err := c.Send(context.Background(), "slow question")
	assert.ErrorIs(t, err, ErrStaleResponse)

	assert.Equal(t, session.Unbound, c.Identity().State())
	_, err = durable.Get("conversation:global")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestoreBindsStoredConversation(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"conv-7": {ID: "conv-7", Title: "Lease questions", Messages: []model.Message{
			{Sender: model.SenderUser, Content: "hi"},
		}},
	}}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, durable.Set("conversation:global", "conv-7"))

	conv, err := c.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "conv-7", conv.ID)
	assert.Equal(t, session.Bound, c.Identity().State())
}

func TestRestoreNotFoundClearsBinding(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{}}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, durable.Set("conversation:global", "gone"))

	conv, err := c.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, conv)
	assert.Equal(t, session.Unbound, c.Identity().State())

	_, err = durable.Get("conversation:global")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestoreTransientFailureKeepsBinding(t *testing.T) {
	api := &fakeAPI{fetchErr: remote.ErrUnavailable}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, durable.Set("conversation:global", "conv-5"))

	_, err := c.Restore(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnavailable)

	assert.Equal(t, session.Pending, c.Identity().State())
	stored, err := durable.Get("conversation:global")
	require.NoError(t, err)
	assert.Equal(t, "conv-5", stored)
}

func TestRestoreFlagWinsOverStoredBinding(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"flagged": {ID: "flagged"},
		"stored":  {ID: "stored"},
	}}
	c, durable, ephemeral := newController(t, session.GlobalScope(), api)
	require.NoError(t, durable.Set("conversation:global", "stored"))
	require.NoError(t, ephemeral.Set(session.RestoreKey, "flagged"))

	conv, err := c.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flagged", conv.ID)

	// The flag is one-shot.
	_, ok := ephemeral.Take(session.RestoreKey)
	assert.False(t, ok)
}

func TestRestoreWithNothingStored(t *testing.T) {
	c, _, _ := newController(t, session.GlobalScope(), &fakeAPI{})

	conv, err := c.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, conv)
	assert.Equal(t, session.Unbound, c.Identity().State())
}

func TestDeleteCurrent(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"conv-1": {ID: "conv-1", Title: "Budget"},
	}}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.History.Load(context.Background()))
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	require.NoError(t, c.DeleteCurrent(context.Background()))

	assert.Equal(t, []string{"conv-1"}, api.deletedIDs)
	assert.Equal(t, session.Unbound, c.Identity().State())
	assert.Empty(t, c.History.Baseline())
	_, err := durable.Get("conversation:global")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteCurrentFailureLeavesState(t *testing.T) {
	api := &fakeAPI{deleteErr: errors.New("boom")}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	assert.Error(t, c.DeleteCurrent(context.Background()))
	assert.Equal(t, session.Bound, c.Identity().State())
	stored, err := durable.Get("conversation:global")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", stored)
}

func TestDeleteCurrentRequiresBinding(t *testing.T) {
	c, _, _ := newController(t, session.GlobalScope(), &fakeAPI{})
	assert.ErrorIs(t, c.DeleteCurrent(context.Background()), session.ErrNotBound)
}

func TestDeleteCurrentRejectsPendingIdentifier(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{}}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, durable.Set("conversation:global", "conv-9"))
	require.NoError(t, c.Identity().Adopt("conv-9"))

	assert.ErrorIs(t, c.DeleteCurrent(context.Background()), session.ErrNotBound)
	assert.Empty(t, api.deletedIDs)
	assert.Equal(t, session.Pending, c.Identity().State())
}

func TestPinCurrentTogglesAndRequiresBinding(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"conv-1": {ID: "conv-1", Title: "Budget"},
	}}
	c, _, _ := newController(t, session.GlobalScope(), api)

	_, err := c.PinCurrent(context.Background())
	assert.ErrorIs(t, err, session.ErrNotBound)

	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	pinned, err := c.PinCurrent(context.Background())
	require.NoError(t, err)
	assert.True(t, pinned)

	pinned, err = c.PinCurrent(context.Background())
	require.NoError(t, err)
	assert.False(t, pinned)
}

func TestRenameCurrentUpdatesHistory(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"conv-1": {ID: "conv-1", Title: "Budget"},
	}}
	c, _, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.History.Load(context.Background()))
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	require.NoError(t, c.RenameCurrent(context.Background(), "Q3 budget review"))

	assert.Equal(t, "Q3 budget review", api.conversations["conv-1"].Title)
	baseline := c.History.Baseline()
	require.Len(t, baseline, 1)
	assert.Equal(t, "Q3 budget review", baseline[0].Title)
}

func TestRenameCurrentFailureLeavesHistory(t *testing.T) {
	api := &fakeAPI{
		conversations: map[string]*model.Conversation{
			"conv-1": {ID: "conv-1", Title: "Budget"},
		},
		renameErr: remote.ErrUnavailable,
	}
	c, _, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.History.Load(context.Background()))
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	assert.ErrorIs(t, c.RenameCurrent(context.Background(), "New title"), remote.ErrUnavailable)

	baseline := c.History.Baseline()
	require.Len(t, baseline, 1)
	assert.Equal(t, "Budget", baseline[0].Title)
}

func TestRenameCurrentRejectsBlankTitle(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"conv-1": {ID: "conv-1", Title: "Budget"},
	}}
	c, _, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	assert.Error(t, c.RenameCurrent(context.Background(), "   "))
	assert.Equal(t, "Budget", api.conversations["conv-1"].Title)
}

func TestVerifyServerInstance(t *testing.T) {
	api := &fakeAPI{status: model.SystemStatus{ServerInstanceID: "boot-1"}}
	c, durable, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	// First check just remembers the identity.
	changed, err := c.VerifyServerInstance(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, session.Bound, c.Identity().State())

	// A restart invalidates the binding.
	api.status.ServerInstanceID = "boot-2"
	changed, err = c.VerifyServerInstance(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, session.Unbound, c.Identity().State())

	stored, err := durable.Get(ServerInstanceKey)
	require.NoError(t, err)
	assert.Equal(t, "boot-2", stored)
}

func TestTranscript(t *testing.T) {
	api := &fakeAPI{conversations: map[string]*model.Conversation{
		"conv-1": {
			ID:        "conv-1",
			Title:     "Lease questions",
			CreatedAt: time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC),
			Messages: []model.Message{
				{Sender: model.SenderUser, Content: "What is the term?"},
				{Sender: model.SenderAssistant, Content: "Five years.", Citations: []model.Citation{
					{SourcePDF: "lease.pdf"},
				}},
			},
		},
	}}
	c, _, _ := newController(t, session.GlobalScope(), api)
	require.NoError(t, c.Identity().ContinueWith("conv-1"))

	text, err := c.Transcript(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Lease questions")
	assert.Contains(t, text, "[user] What is the term?")
	assert.Contains(t, text, "[assistant] Five years.")
	assert.Contains(t, text, "source: lease.pdf")
}
