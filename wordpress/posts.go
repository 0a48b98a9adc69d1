package wordpress

import (
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Post is a blog post as served by WPGraphQL.
type Post struct {
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Content       string        `json:"content"`
	Excerpt       string        `json:"excerpt"`
	Date          string        `json:"date"`
	Modified      string        `json:"modified"`
	Author        Author        `json:"author"`
	Tags          []Term        `json:"tags"`
	Categories    []Term        `json:"categories"`
	FeaturedImage string        `json:"featuredImage,omitempty"`
	Language      string        `json:"language,omitempty"`
	Translations  []Translation `json:"translations,omitempty"`
}

// Author is the post author.
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Term is a tag or category reference.
type Term struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Translation points at the same post in another language.
type Translation struct {
	Slug     string `json:"slug"`
	Language string `json:"language"`
}

// Category is a post category with its post count.
type Category struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// PublishedAt parses Date, returning the zero time if it is malformed.
func (p Post) PublishedAt() time.Time {
	return parseWPDate(p.Date)
}

// ModifiedAt parses Modified, falling back to PublishedAt.
func (p Post) ModifiedAt() time.Time {
	if t := parseWPDate(p.Modified); !t.IsZero() {
		return t
	}
	return p.PublishedAt()
}

// TagNames returns the names of the post's tags.
func (p Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// InCategory reports whether the post is filed under the category slug.
func (p Post) InCategory(slug string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c.Slug, slug) {
			return true
		}
	}
	return false
}

func parseWPDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

const postFields = `
	title
	slug
	date
	modified
	excerpt
	content
	author { node { name avatar { url } } }
	tags { nodes { name slug } }
	categories { nodes { name slug } }
	featuredImage { node { sourceUrl } }
	language { code }
	translations { slug language { code } }
`

const queryAllPosts = `query AllPosts($first: Int!) {
  posts(first: $first, where: { orderby: { field: DATE, order: DESC } }) {
    nodes {` + postFields + `}
  }
}`

const queryPostBySlug = `query PostBySlug($id: ID!) {
  post(id: $id, idType: SLUG) {` + postFields + `}
}`

const queryAllSlugs = `query AllSlugs {
  posts(first: 10000) {
    nodes { slug }
  }
}`

const queryCategories = `query Categories {
  categories(first: 100, where: { hideEmpty: true }) {
    nodes { name slug count }
  }
}`

const queryPostsByCategory = `query PostsByCategory($category: String!, $first: Int!) {
  posts(first: $first, where: { categoryName: $category, orderby: { field: DATE, order: DESC } }) {
    nodes {` + postFields + `}
  }
}`

// rawPost mirrors the nested WPGraphQL shape.
type rawPost struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Date     string `json:"date"`
	Modified string `json:"modified"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Author   struct {
		Node struct {
			Name   string `json:"name"`
			Avatar struct {
				URL string `json:"url"`
			} `json:"avatar"`
		} `json:"node"`
	} `json:"author"`
	Tags struct {
		Nodes []Term `json:"nodes"`
	} `json:"tags"`
	Categories struct {
		Nodes []Term `json:"nodes"`
	} `json:"categories"`
	FeaturedImage *struct {
		Node struct {
			SourceURL string `json:"sourceUrl"`
		} `json:"node"`
	} `json:"featuredImage"`
	Language *struct {
		Code string `json:"code"`
	} `json:"language"`
	Translations []struct {
		Slug     string `json:"slug"`
		Language struct {
			Code string `json:"code"`
		} `json:"language"`
	} `json:"translations"`
}

var htmlPolicy = bluemonday.UGCPolicy()

func (r rawPost) toPost() Post {
	p := Post{
		Title:      r.Title,
		Slug:       r.Slug,
		Date:       r.Date,
		Modified:   r.Modified,
		Excerpt:    htmlPolicy.Sanitize(r.Excerpt),
		Content:    htmlPolicy.Sanitize(r.Content),
		Author:     Author{Name: r.Author.Node.Name, Avatar: r.Author.Node.Avatar.URL},
		Tags:       r.Tags.Nodes,
		Categories: r.Categories.Nodes,
	}
	if r.FeaturedImage != nil {
		p.FeaturedImage = r.FeaturedImage.Node.SourceURL
	}
	if r.Language != nil {
		p.Language = strings.ToLower(r.Language.Code)
	}
	for _, t := range r.Translations {
		p.Translations = append(p.Translations, Translation{Slug: t.Slug, Language: strings.ToLower(t.Language.Code)})
	}
	return p
}

type postList struct {
	Posts struct {
		Nodes []rawPost `json:"nodes"`
	} `json:"posts"`
}

func (l postList) toPosts() []Post {
	posts := make([]Post, 0, len(l.Posts.Nodes))
	for _, r := range l.Posts.Nodes {
		if r.Slug == "" {
			continue
		}
		posts = append(posts, r.toPost())
	}
	return posts
}

// GetAllPosts returns up to first posts, newest first.
func (c *Client) GetAllPosts(ctx context.Context, first int) []Post {
	var list postList
	if !decodeInto(c.FetchAPI(ctx, queryAllPosts, map[string]any{"first": first}), &list) {
		return []Post{}
	}
	return list.toPosts()
}

// GetPostBySlug returns the post with slug, or false when it does not exist or
// the fetch failed.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) (Post, bool) {
	var res struct {
		Post *rawPost `json:"post"`
	}
	if !decodeInto(c.FetchAPI(ctx, queryPostBySlug, map[string]any{"id": slug}), &res) || res.Post == nil {
		return Post{}, false
	}
	return res.Post.toPost(), true
}

// GetAllSlugs returns every post slug.
func (c *Client) GetAllSlugs(ctx context.Context) []string {
	var list struct {
		Posts struct {
			Nodes []struct {
				Slug string `json:"slug"`
			} `json:"nodes"`
		} `json:"posts"`
	}
	if !decodeInto(c.FetchAPI(ctx, queryAllSlugs, nil), &list) {
		return []string{}
	}
	slugs := make([]string, 0, len(list.Posts.Nodes))
	for _, n := range list.Posts.Nodes {
		if n.Slug != "" {
			slugs = append(slugs, n.Slug)
		}
	}
	return slugs
}

// GetCategories returns non-empty categories.
func (c *Client) GetCategories(ctx context.Context) []Category {
	var res struct {
		Categories struct {
			Nodes []Category `json:"nodes"`
		} `json:"categories"`
	}
	if !decodeInto(c.FetchAPI(ctx, queryCategories, nil), &res) {
		return []Category{}
	}
	return res.Categories.Nodes
}

// GetPostsByCategory returns up to first posts filed under the category slug.
func (c *Client) GetPostsByCategory(ctx context.Context, category string, first int) []Post {
	var list postList
	vars := map[string]any{"category": category, "first": first}
	if !decodeInto(c.FetchAPI(ctx, queryPostsByCategory, vars), &list) {
		return []Post{}
	}
	return list.toPosts()
}
