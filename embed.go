package scribeline

import "embed"

// legalFS holds the Markdown sources of the privacy, terms and cookie pages.
//
//go:embed legal/*.md
var legalFS embed.FS
