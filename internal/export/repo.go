// Package export implements the batch pipeline that turns raw GitHub
// issue/PR JSON dumps into per-item Markdown documents with image
// references rewritten to locally downloaded assets.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRepo indicates a repository argument without the
// OWNER/REPO separator.
var ErrInvalidRepo = errors.New("export: invalid repo format, expected OWNER/REPO")

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository parses an OWNER/REPO argument.
func ParseRepository(arg string) (Repository, error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" {
		return Repository{}, fmt.Errorf("%w: %q", ErrInvalidRepo, arg)
	}
	return Repository{Owner: owner, Name: name}, nil
}

// String returns the OWNER/REPO form.
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Slug returns the sanitised directory key (owner and name joined by
// an underscore).
func (r Repository) Slug() string {
	return r.Owner + "_" + r.Name
}

// URL returns the repository's web URL.
func (r Repository) URL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name
}
