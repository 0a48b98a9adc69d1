package views

import "github.com/eringen/scribeline/bridge"

// SiteConfig holds the site-wide settings templates need. Every handler
// passes it so nothing is hardcoded.
type SiteConfig struct {
	Name          string // SITE_NAME
	URL           string // SITE_URL
	Description   string // SITE_DESCRIPTION
	SessionOrigin string // trusted origin of the session bridge iframe
	BridgePath    string // path of the bridge page on SessionOrigin
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image
	Lang        string // html lang attribute
}

// Viewer is what the page knows about the visitor.
type Viewer struct {
	Session   bridge.Session
	Remaining map[string]int // guest uses left per feature; nil when logged in
}

// Tool is one entry of the feature shell sidebar.
type Tool struct {
	Slug        string // URL segment under /app/
	Name        string
	Description string
	Endpoint    string // API route the tool's form posts to
	Feature     string // usage counter name
	Streams     bool   // response is a plain-text stream
	Upload      bool   // tool accepts a document upload
}

// Tools lists the feature shell tools in sidebar order.
var Tools = []Tool{
	{Slug: "simplify", Name: "Simplify", Description: "Rewrite dense text in plain language.", Endpoint: "/api/ai/simplify", Feature: "simplify"},
	{Slug: "stealth", Name: "Stealth", Description: "Make generated text read naturally.", Endpoint: "/api/ai/stealth", Feature: "stealth"},
	{Slug: "chat", Name: "Chat", Description: "Ask questions about a document.", Endpoint: "/api/ai/chat", Feature: "chat", Streams: true, Upload: true},
	{Slug: "podcast", Name: "Podcast", Description: "Turn an article into a short audio episode.", Endpoint: "/api/ai/podcast", Feature: "podcast"},
}

// FindTool returns the tool with slug.
func FindTool(slug string) (Tool, bool) {
	for _, t := range Tools {
		if t.Slug == slug {
			return t, true
		}
	}
	return Tool{}, false
}
