package scribeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/eringen/scribeline/wordpress"
)

const (
	// loadTimeout bounds a snapshot refresh. The refresh is shared by every
	// waiting request, so it does not follow any one request's context.
	loadTimeout = 30 * time.Second
	// maxEmptyRetry is how soon a cold cache retries after a refresh that
	// returned nothing.
	maxEmptyRetry = 5 * time.Second
	// maxLookups caps the per-slug lookup tables.
	maxLookups = 1000
)

// PostSource is the blog data layer. *wordpress.Client implements it.
type PostSource interface {
	GetAllPosts(ctx context.Context, first int) []wordpress.Post
	GetPostBySlug(ctx context.Context, slug string) (wordpress.Post, bool)
	GetAllSlugs(ctx context.Context) []string
	GetCategories(ctx context.Context) []wordpress.Category
	GetPostsByCategory(ctx context.Context, category string, first int) []wordpress.Post
}

type postLookup struct {
	post    wordpress.Post
	found   bool
	expires time.Time
}

type categoryLookup struct {
	posts   []wordpress.Post
	expires time.Time
}

// PostCache keeps the latest posts and categories in memory for ttl.
//
// A refresh that comes back empty while an earlier snapshot exists keeps the
// earlier snapshot, so a WordPress outage serves the last good blog. Lookups
// that go past the snapshot (older posts, quiet categories, the slug list)
// are remembered for ttl as well, misses included.
type PostCache struct {
	mu         sync.RWMutex
	posts      []wordpress.Post
	categories []wordpress.Category
	loaded     bool
	expires    time.Time
	ttl        time.Duration
	emptyRetry time.Duration
	pageSize   int
	source     PostSource

	lmu          sync.Mutex
	postLookups  map[string]postLookup
	catLookups   map[string]categoryLookup
	slugs        []string
	slugsExpires time.Time
}

// NewPostCache creates a PostCache backed by source.
func NewPostCache(source PostSource, ttl time.Duration, pageSize int) *PostCache {
	return &PostCache{
		source:      source,
		ttl:         ttl,
		emptyRetry:  min(ttl, maxEmptyRetry),
		pageSize:    pageSize,
		postLookups: map[string]postLookup{},
		catLookups:  map[string]categoryLookup{},
	}
}

func (c *PostCache) valid() bool {
	return !c.expires.IsZero() && time.Now().Before(c.expires)
}

// Invalidate clears the freshness marks so the next read refetches. The
// snapshot itself is kept as the stale fallback.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.expires = time.Time{}
	c.mu.Unlock()

	c.lmu.Lock()
	clear(c.postLookups)
	clear(c.catLookups)
	c.slugsExpires = time.Time{}
	c.lmu.Unlock()
}

func (c *PostCache) load(ctx context.Context) {
	if c.valid() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	posts := c.source.GetAllPosts(ctx, c.pageSize)
	categories := c.source.GetCategories(ctx)
	now := time.Now()
	if len(posts) == 0 && !c.loaded {
		// Nothing to fall back on yet: serve the empty result briefly and
		// try again soon instead of pinning it for the whole ttl.
		c.posts, c.categories = posts, categories
		c.expires = now.Add(c.emptyRetry)
		return
	}
	if len(posts) > 0 || c.posts == nil {
		c.posts = posts
	}
	if len(categories) > 0 || c.categories == nil {
		c.categories = categories
	}
	c.loaded = true
	c.expires = now.Add(c.ttl)
}

// ensureLoaded returns cached posts and categories after ensuring the cache
// is fresh. It tries a read lock first; only takes a write lock if a reload
// is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]wordpress.Post, []wordpress.Category) {
	c.mu.RLock()
	if c.valid() {
		posts, cats := c.posts, c.categories
		c.mu.RUnlock()
		return posts, cats
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)
	return c.posts, c.categories
}

// ListPosts returns cached posts, optionally filtered by category slug.
// Categories with no posts in the cached window are fetched directly.
func (c *PostCache) ListPosts(ctx context.Context, category string) []wordpress.Post {
	posts, _ := c.ensureLoaded(ctx)
	if category == "" {
		return posts
	}
	var filtered []wordpress.Post
	for _, p := range posts {
		if p.InCategory(category) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return c.categoryPosts(ctx, strings.ToLower(category))
}

func (c *PostCache) categoryPosts(ctx context.Context, category string) []wordpress.Post {
	now := time.Now()
	c.lmu.Lock()
	if l, ok := c.catLookups[category]; ok && now.Before(l.expires) {
		c.lmu.Unlock()
		return l.posts
	}
	c.lmu.Unlock()

	posts := c.source.GetPostsByCategory(ctx, category, c.pageSize)
	if ctx.Err() != nil {
		return posts
	}
	c.lmu.Lock()
	if len(c.catLookups) >= maxLookups {
		clear(c.catLookups)
	}
	c.catLookups[category] = categoryLookup{posts: posts, expires: now.Add(c.ttl)}
	c.lmu.Unlock()
	return posts
}

// ListCategories returns cached categories.
func (c *PostCache) ListCategories(ctx context.Context) []wordpress.Category {
	_, cats := c.ensureLoaded(ctx)
	return cats
}

// Category returns the cached category with slug.
func (c *PostCache) Category(ctx context.Context, slug string) (wordpress.Category, bool) {
	for _, cat := range c.ListCategories(ctx) {
		if strings.EqualFold(cat.Slug, slug) {
			return cat, true
		}
	}
	return wordpress.Category{}, false
}

// GetPost returns a post by slug, looking past the cached window when needed.
func (c *PostCache) GetPost(ctx context.Context, slug string) (wordpress.Post, error) {
	posts, _ := c.ensureLoaded(ctx)
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}

	now := time.Now()
	c.lmu.Lock()
	l, ok := c.postLookups[slug]
	c.lmu.Unlock()
	if !ok || !now.Before(l.expires) {
		l.post, l.found = c.source.GetPostBySlug(ctx, slug)
		if ctx.Err() == nil {
			l.expires = now.Add(c.ttl)
			c.lmu.Lock()
			if len(c.postLookups) >= maxLookups {
				clear(c.postLookups)
			}
			c.postLookups[slug] = l
			c.lmu.Unlock()
		}
	}
	if !l.found {
		return wordpress.Post{}, ErrNotFound
	}
	return l.post, nil
}

// Slugs returns every post slug known to the source, falling back to the
// cached posts when the source returns none.
func (c *PostCache) Slugs(ctx context.Context) []string {
	c.lmu.Lock()
	if len(c.slugs) > 0 && time.Now().Before(c.slugsExpires) {
		slugs := c.slugs
		c.lmu.Unlock()
		return slugs
	}
	c.lmu.Unlock()

	if slugs := c.source.GetAllSlugs(ctx); len(slugs) > 0 {
		c.lmu.Lock()
		c.slugs, c.slugsExpires = slugs, time.Now().Add(c.ttl)
		c.lmu.Unlock()
		return slugs
	}
	posts, _ := c.ensureLoaded(ctx)
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}
