package favorites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

type fakeRemote struct {
	entries   []model.FavoriteEntry
	toggleErr error
	toggled   []string
	// state the server settles on per filename
	serverState map[string]bool
}

func (f *fakeRemote) ListFavorites(ctx context.Context) ([]model.FavoriteEntry, error) {
	return f.entries, nil
}

func (f *fakeRemote) ToggleFavorite(ctx context.Context, filename string) (bool, error) {
	if f.toggleErr != nil {
		return false, f.toggleErr
	}
	f.toggled = append(f.toggled, filename)
	return f.serverState[filename], nil
}

func TestLoad(t *testing.T) {
	remote := &fakeRemote{entries: []model.FavoriteEntry{
		{Filename: "a.pdf"},
		{Filename: "b.pdf"},
	}}
	c := New(remote, logger.NewNop())
	require.NoError(t, c.Load(context.Background()))

	assert.True(t, c.IsFavorite("a.pdf"))
	assert.False(t, c.IsFavorite("c.pdf"))
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, c.All())
}

func TestToggleAdoptsServerState(t *testing.T) {
	remote := &fakeRemote{serverState: map[string]bool{"a.pdf": true}}
	c := New(remote, logger.NewNop())

	fav, err := c.Toggle(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.True(t, fav)
	assert.True(t, c.IsFavorite("a.pdf"))
	assert.Equal(t, []string{"a.pdf"}, remote.toggled)
}

func TestToggleRejectionRevertsLocalState(t *testing.T) {
	remote := &fakeRemote{
		entries:   []model.FavoriteEntry{{Filename: "a.pdf"}},
		toggleErr: errors.New("server said no"),
	}
	c := New(remote, logger.NewNop())
	require.NoError(t, c.Load(context.Background()))

	fav, err := c.Toggle(context.Background(), "a.pdf")
	assert.Error(t, err)
	assert.True(t, fav)
	assert.True(t, c.IsFavorite("a.pdf"))

	fav, err = c.Toggle(context.Background(), "new.pdf")
	assert.Error(t, err)
	assert.False(t, fav)
	assert.False(t, c.IsFavorite("new.pdf"))
}

func TestOptimisticHelper(t *testing.T) {
	state := "before"

	err := Optimistic(
		func() { state = "applied" },
		func() { state = "before" },
		func() error { return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "applied", state)

	err = Optimistic(
		func() { state = "tentative" },
		func() { state = "applied" },
		func() error { return errors.New("rejected") },
	)
	assert.Error(t, err)
	assert.Equal(t, "applied", state)
}
