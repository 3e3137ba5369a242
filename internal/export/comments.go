package export

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

// Comment is one issue or review comment.
type Comment struct {
	Author     string
	CreatedRaw string
	Body       string
}

// extractComment pulls the rendered fields out of a raw comment
// object. The author may appear as user.login (REST), author.login
// (GraphQL) or a bare author string.
func extractComment(raw map[string]any) Comment {
	author := "unknown"
	if user, ok := raw["user"].(map[string]any); ok {
		if login := strField(user, "login"); login != "" {
			author = login
		}
	}
	if author == "unknown" {
		switch v := raw["author"].(type) {
		case map[string]any:
			if login := strField(v, "login"); login != "" {
				author = login
			}
		case string:
			if v != "" {
				author = v
			}
		}
	}

	return Comment{
		Author:     author,
		CreatedRaw: strField(raw, "created_at", "createdAt"),
		Body:       strField(raw, "body"),
	}
}

// loadComments reads a per-item comment file. A missing file means no
// comments; a read or parse failure is logged as a warning and also
// treated as no comments. Page-slurped dumps wrapping the list under a
// "comments" or "data" key are unwrapped.
func loadComments(path string) []Comment {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read %s: %v", path, err)
		}
		return nil
	}

	var rawList []map[string]any
	if err := json.Unmarshal(data, &rawList); err != nil {
		// Not a plain array: try a wrapping object.
		var wrapper map[string]any
		if err := json.Unmarshal(data, &wrapper); err != nil {
			logger.Warn("failed to parse %s: %v", path, err)
			return nil
		}
		rawList = unwrapCommentList(wrapper)
		if rawList == nil {
			return nil
		}
	}

	comments := make([]Comment, 0, len(rawList))
	for _, raw := range rawList {
		comments = append(comments, extractComment(raw))
	}
	return comments
}

// unwrapCommentList finds a comment array under common wrapper keys.
func unwrapCommentList(wrapper map[string]any) []map[string]any {
	for _, key := range []string{"comments", "data"} {
		list, ok := wrapper[key].([]any)
		if !ok {
			continue
		}
		result := make([]map[string]any, 0, len(list))
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				result = append(result, m)
			}
		}
		return result
	}
	return nil
}

// sortComments orders comments chronologically by parsed creation
// timestamp. Comments whose timestamp is missing or unparseable sort
// after all parseable ones; ties and unparseable runs keep their
// original input order (stable sort).
func sortComments(comments []Comment) []Comment {
	type keyed struct {
		comment Comment
		at      time.Time
		parsed  bool
	}

	ordered := make([]keyed, len(comments))
	for i, c := range comments {
		k := keyed{comment: c}
		if c.CreatedRaw != "" {
			if at, err := time.Parse(time.RFC3339, c.CreatedRaw); err == nil {
				k.at = at
				k.parsed = true
			}
		}
		ordered[i] = k
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.parsed != b.parsed {
			return a.parsed
		}
		if !a.parsed {
			return false
		}
		return a.at.Before(b.at)
	})

	sorted := make([]Comment, len(ordered))
	for i, k := range ordered {
		sorted[i] = k.comment
	}
	return sorted
}
