package scribeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreCoverRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCover("post", "https://cdn.example/a.png")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveCover(Cover{
		Slug:      "post",
		SourceURL: "https://cdn.example/a.png",
		Width:     800,
		Height:    400,
		Data:      []byte{0xff, 0xd8},
	}))

	c, err := s.GetCover("post", "https://cdn.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, 800, c.Width)
	assert.Equal(t, 400, c.Height)
	assert.Equal(t, []byte{0xff, 0xd8}, c.Data)
	assert.False(t, c.FetchedAt.IsZero())
}

func TestStoreCoverSourceChange(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCover(Cover{Slug: "post", SourceURL: "https://cdn.example/a.png", Data: []byte{1}}))

	_, err := s.GetCover("post", "https://cdn.example/b.png")
	assert.ErrorIs(t, err, ErrNotFound, "a new image URL invalidates the cached cover")

	require.NoError(t, s.SaveCover(Cover{Slug: "post", SourceURL: "https://cdn.example/b.png", Data: []byte{2}}))
	c, err := s.GetCover("post", "https://cdn.example/b.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, c.Data)
}

func TestStoreDeleteCover(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCover(Cover{Slug: "post", SourceURL: "u", Data: []byte{1}}))
	require.NoError(t, s.DeleteCover("post"))

	_, err := s.GetCover("post", "u")
	assert.ErrorIs(t, err, ErrNotFound)
}
