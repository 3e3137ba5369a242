package export

import "strings"

// Item holds the fields rendered for one issue or pull request,
// extracted from a raw gh-api JSON object.
type Item struct {
	Number    int
	Title     string
	URL       string
	State     string
	CreatedAt string
	UpdatedAt string
	Body      string
}

// extractItem pulls the rendered fields out of a raw issue/PR object.
// Both REST (snake_case) and GraphQL (camelCase) key spellings are
// accepted, matching whatever `gh api` dumped.
func extractItem(raw map[string]any) Item {
	return Item{
		Number:    intField(raw, "number"),
		Title:     strField(raw, "title"),
		URL:       strField(raw, "html_url", "url"),
		State:     strings.ToUpper(strField(raw, "state")),
		CreatedAt: strField(raw, "created_at", "createdAt"),
		UpdatedAt: strField(raw, "updated_at", "updatedAt"),
		Body:      strField(raw, "body"),
	}
}

// isPullRequest reports whether an entry from the issues endpoint is
// actually a pull request (PRs show up there too).
func isPullRequest(raw map[string]any) bool {
	_, ok := raw["pull_request"]
	return ok
}

// strField returns the first non-empty string value among keys.
func strField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// intField returns the value of key as an int. JSON numbers decode as
// float64.
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
