package scribeline

import (
	"sort"
	"strings"

	"github.com/eringen/scribeline/wordpress"
)

// RelatedPosts ranks posts by how many tags and categories they share with
// current and returns at most n of them. Posts sharing nothing are skipped;
// ties keep the newest-first source order.
func RelatedPosts(current wordpress.Post, posts []wordpress.Post, n int) []wordpress.Post {
	terms := make(map[string]struct{})
	for _, t := range current.Tags {
		terms["t:"+strings.ToLower(t.Slug)] = struct{}{}
	}
	for _, cat := range current.Categories {
		terms["c:"+strings.ToLower(cat.Slug)] = struct{}{}
	}

	type scored struct {
		post  wordpress.Post
		score int
	}
	var candidates []scored
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		score := 0
		for _, t := range p.Tags {
			if _, ok := terms["t:"+strings.ToLower(t.Slug)]; ok {
				score++
			}
		}
		for _, cat := range p.Categories {
			if _, ok := terms["c:"+strings.ToLower(cat.Slug)]; ok {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{p, score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var related []wordpress.Post
	for _, s := range candidates {
		if len(related) == n {
			break
		}
		related = append(related, s.post)
	}
	return related
}

// FilterByLanguage keeps posts written in lang. An empty lang keeps all posts.
func FilterByLanguage(posts []wordpress.Post, lang string) []wordpress.Post {
	if lang == "" {
		return posts
	}
	var out []wordpress.Post
	for _, p := range posts {
		if strings.EqualFold(p.Language, lang) {
			out = append(out, p)
		}
	}
	return out
}

// Languages returns the sorted set of language codes used by posts.
// Single-language blogs return nil so no switcher is shown.
func Languages(posts []wordpress.Post) []string {
	seen := make(map[string]struct{})
	for _, p := range posts {
		if p.Language != "" {
			seen[p.Language] = struct{}{}
		}
	}
	if len(seen) < 2 {
		return nil
	}
	langs := make([]string, 0, len(seen))
	for l := range seen {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// RobotsTxt returns the robots.txt body pointing crawlers at the sitemap.
func RobotsTxt(siteURL string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /app/\n")
	b.WriteString("\nSitemap: " + strings.TrimSuffix(siteURL, "/") + "/sitemap.xml\n")
	return b.String()
}
