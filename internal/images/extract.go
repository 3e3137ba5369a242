package images

import (
	"regexp"
	"strings"
)

// refPattern matches Markdown image syntax `![alt](url "title")` and
// HTML `<img src=...>` tags (quoted or unquoted attribute values). The
// HTML branch is case-insensitive and tolerates newlines inside the
// tag. RE2 has no backreferences, so the two quote styles are separate
// alternatives.
var refPattern = regexp.MustCompile(
	`(?is)!\[[^\]]*\]\(\s*([^)\s]+)(?:\s+["'][^"']*["'])?\s*\)` +
		`|<img\b[^>]*?\bsrc=(?:"([^"]*)"|'([^']*)'|([^>\s"']+))[^>]*?>`)

// Reference is one image reference found in a block of text.
type Reference struct {
	// Snippet is the full matched markup.
	Snippet string
	// URL is the literal URL substring inside the snippet.
	URL string
}

// References scans text for image references and returns each matched
// snippet with its extracted URL. References with an empty URL are
// skipped.
func References(text string) []Reference {
	var refs []Reference
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		url := submatchURL(m)
		if url == "" {
			continue
		}
		refs = append(refs, Reference{Snippet: m[0], URL: url})
	}
	return refs
}

// Rewritable reports whether a matched URL should be rewritten to a
// local path. Inline-encoded (data:) and relative references are left
// untouched so already-local documents are never mangled.
func Rewritable(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// RewriteURLs replaces every rewritable image URL in text with the
// value returned by resolve. The resolve callback is invoked once per
// occurrence; snippets whose URL is not rewritable pass through
// unchanged.
func RewriteURLs(text string, resolve func(url string) string) string {
	if text == "" {
		return ""
	}
	return refPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := refPattern.FindStringSubmatch(match)
		url := submatchURL(m)
		if url == "" || !Rewritable(url) {
			return match
		}
		return strings.Replace(match, url, resolve(url), 1)
	})
}

// submatchURL picks the URL capture group that actually matched:
// markdown, double-quoted src, single-quoted src, or unquoted src.
func submatchURL(m []string) string {
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
