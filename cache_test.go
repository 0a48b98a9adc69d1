package scribeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/scribeline/wordpress"
)

type fakeSource struct {
	mu         sync.Mutex
	posts      []wordpress.Post
	categories []wordpress.Category
	slugs      []string
	allCalls   int
	slugCalls  int
	lookups    int
	bySlug     map[string]wordpress.Post
	byCategory map[string][]wordpress.Post
}

// GetAllPosts behaves like the WordPress client: a canceled context yields
// no posts.
func (f *fakeSource) GetAllPosts(ctx context.Context, first int) []wordpress.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls++
	if ctx.Err() != nil {
		return nil
	}
	return f.posts
}

func (f *fakeSource) GetPostBySlug(ctx context.Context, slug string) (wordpress.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	p, ok := f.bySlug[slug]
	return p, ok
}

func (f *fakeSource) GetAllSlugs(ctx context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugCalls++
	return f.slugs
}

func (f *fakeSource) GetCategories(ctx context.Context) []wordpress.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories
}

func (f *fakeSource) GetPostsByCategory(ctx context.Context, category string, first int) []wordpress.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return f.byCategory[category]
}

func (f *fakeSource) set(posts []wordpress.Post, cats []wordpress.Category) {
	f.mu.Lock()
	f.posts, f.categories = posts, cats
	f.mu.Unlock()
}

func samplePosts() []wordpress.Post {
	return []wordpress.Post{
		{
			Title:      "Second",
			Slug:       "second",
			Date:       "2024-02-01T10:00:00",
			Tags:       []wordpress.Term{{Name: "Go", Slug: "go"}},
			Categories: []wordpress.Term{{Name: "Guides", Slug: "guides"}},
		},
		{
			Title:      "First",
			Slug:       "first",
			Date:       "2024-01-01T10:00:00",
			Categories: []wordpress.Term{{Name: "News", Slug: "news"}},
		},
	}
}

func TestPostCacheServesWithinTTL(t *testing.T) {
	src := &fakeSource{posts: samplePosts()}
	c := NewPostCache(src, time.Minute, 10)
	ctx := context.Background()

	assert.Len(t, c.ListPosts(ctx, ""), 2)
	assert.Len(t, c.ListPosts(ctx, ""), 2)
	assert.Equal(t, 1, src.allCalls)

	c.Invalidate()
	c.ListPosts(ctx, "")
	assert.Equal(t, 2, src.allCalls)
}

func TestPostCacheKeepsStaleSnapshotOnEmptyRefresh(t *testing.T) {
	src := &fakeSource{}
	src.set(samplePosts(), []wordpress.Category{{Name: "Guides", Slug: "guides", Count: 1}})
	c := NewPostCache(src, time.Minute, 10)
	ctx := context.Background()

	require.Len(t, c.ListPosts(ctx, ""), 2)

	src.set([]wordpress.Post{}, []wordpress.Category{})
	c.Invalidate()

	assert.Len(t, c.ListPosts(ctx, ""), 2, "stale posts kept")
	assert.Len(t, c.ListCategories(ctx), 1, "stale categories kept")
}

func TestPostCacheEmptySourceIsEmpty(t *testing.T) {
	c := NewPostCache(&fakeSource{posts: []wordpress.Post{}}, time.Minute, 10)
	assert.Empty(t, c.ListPosts(context.Background(), ""))
}

func TestPostCacheFiltersByCategory(t *testing.T) {
	src := &fakeSource{
		posts: samplePosts(),
		byCategory: map[string][]wordpress.Post{
			"archive": {{Title: "Old", Slug: "old"}},
		},
	}
	c := NewPostCache(src, time.Minute, 10)
	ctx := context.Background()

	guides := c.ListPosts(ctx, "GUIDES")
	require.Len(t, guides, 1)
	assert.Equal(t, "second", guides[0].Slug)

	archive := c.ListPosts(ctx, "archive")
	require.Len(t, archive, 1, "falls back to the source for uncached categories")
	assert.Equal(t, "old", archive[0].Slug)
}

func TestPostCacheGetPost(t *testing.T) {
	src := &fakeSource{
		posts:  samplePosts(),
		bySlug: map[string]wordpress.Post{"older": {Title: "Older", Slug: "older"}},
	}
	c := NewPostCache(src, time.Minute, 10)
	ctx := context.Background()

	p, err := c.GetPost(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "First", p.Title)

	p, err = c.GetPost(ctx, "older")
	require.NoError(t, err)
	assert.Equal(t, "Older", p.Title)

	_, err = c.GetPost(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostCacheSlugsFallsBackToPosts(t *testing.T) {
	ctx := context.Background()

	c := NewPostCache(&fakeSource{posts: samplePosts(), slugs: []string{"a", "b", "c"}}, time.Minute, 10)
	assert.Equal(t, []string{"a", "b", "c"}, c.Slugs(ctx))

	c = NewPostCache(&fakeSource{posts: samplePosts()}, time.Minute, 10)
	assert.Equal(t, []string{"second", "first"}, c.Slugs(ctx))
}

func TestPostCacheConcurrentReads(t *testing.T) {
	src := &fakeSource{posts: samplePosts()}
	c := NewPostCache(src, time.Minute, 10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ListPosts(context.Background(), "")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.allCalls)
}

func TestPostCacheRefreshOutlivesCanceledRequest(t *testing.T) {
	src := &fakeSource{posts: samplePosts()}
	c := NewPostCache(src, time.Minute, 10)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Len(t, c.ListPosts(canceled, ""), 2, "refresh runs detached from the request")
	assert.Len(t, c.ListPosts(context.Background(), ""), 2)
	assert.Equal(t, 1, src.allCalls)
}

func TestPostCacheRetriesSoonAfterEmptyColdLoad(t *testing.T) {
	src := &fakeSource{}
	c := NewPostCache(src, time.Minute, 10)
	c.emptyRetry = 10 * time.Millisecond
	ctx := context.Background()

	assert.Empty(t, c.ListPosts(ctx, ""))
	assert.Empty(t, c.ListPosts(ctx, ""))
	assert.Equal(t, 1, src.allCalls, "empty result is served until the retry window passes")

	src.set(samplePosts(), nil)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, c.ListPosts(ctx, ""), 2)
	assert.Equal(t, 2, src.allCalls)
}

func TestPostCacheRemembersLookups(t *testing.T) {
	src := &fakeSource{
		posts:  samplePosts(),
		slugs:  []string{"a", "b"},
		bySlug: map[string]wordpress.Post{"older": {Title: "Older", Slug: "older"}},
	}
	c := NewPostCache(src, time.Minute, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetPost(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		p, err := c.GetPost(ctx, "older")
		require.NoError(t, err)
		assert.Equal(t, "Older", p.Title)
		assert.Empty(t, c.ListPosts(ctx, "nothing-here"))
		assert.Equal(t, []string{"a", "b"}, c.Slugs(ctx))
	}
	assert.Equal(t, 3, src.lookups, "one fetch per unknown slug or category")
	assert.Equal(t, 1, src.slugCalls)

	c.Invalidate()
	_, err := c.GetPost(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	c.Slugs(ctx)
	assert.Equal(t, 4, src.lookups)
	assert.Equal(t, 2, src.slugCalls)
}

func TestPostCacheSkipsMissOnCanceledLookup(t *testing.T) {
	src := &fakeSource{posts: samplePosts(), bySlug: map[string]wordpress.Post{}}
	c := NewPostCache(src, time.Minute, 10)
	c.ListPosts(context.Background(), "")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetPost(canceled, "later")
	assert.ErrorIs(t, err, ErrNotFound)

	src.mu.Lock()
	src.bySlug["later"] = wordpress.Post{Title: "Later", Slug: "later"}
	src.mu.Unlock()
	p, err := c.GetPost(context.Background(), "later")
	require.NoError(t, err)
	assert.Equal(t, "Later", p.Title)
}
