package export

import (
	"fmt"
	"strings"
)

// Placeholders keep documents well-formed when a field is empty.
const (
	noDescription = "_No description_"
	noContent     = "_No content_"
	noComments    = "_No comments_"
	noRelated     = "_None_"
)

// formatRelatedLinks renders a bullet list of item links, or the
// "none" placeholder for an empty list.
func formatRelatedLinks(numbers []int, baseURL, label string) string {
	if len(numbers) == 0 {
		return noRelated
	}
	lines := make([]string, 0, len(numbers))
	for _, num := range numbers {
		lines = append(lines, fmt.Sprintf("- [%s #%d](%s/%d)", label, num, baseURL, num))
	}
	return strings.Join(lines, "\n")
}

// renderCommentBlock renders one comment as a heading of author and
// raw timestamp followed by the (already image-rewritten) body.
func renderCommentBlock(c Comment, body string) string {
	if strings.TrimSpace(body) == "" {
		body = noContent
	}
	return fmt.Sprintf("### %s | %s\n\n%s", c.Author, c.CreatedRaw, body)
}

// renderDocument assembles the final Markdown text deterministically:
// metadata header, description, related-items section, comment thread.
func renderDocument(heading string, item Item, description, relatedHeading, relatedSection string, commentBlocks []string) string {
	if strings.TrimSpace(description) == "" {
		description = noDescription
	}

	comments := noComments
	if len(commentBlocks) > 0 {
		comments = strings.Join(commentBlocks, "\n\n")
	}

	content := []string{
		heading,
		"",
		"- URL: " + item.URL,
		"- State: " + item.State,
		"- Created: " + item.CreatedAt,
		"- Updated: " + item.UpdatedAt,
		"",
		"## Description",
		"",
		description,
		"",
		"## " + relatedHeading,
		"",
		relatedSection,
		"",
		"## Comments",
		"",
		comments,
		"",
	}

	return strings.Join(content, "\n")
}
