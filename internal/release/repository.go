package release

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRepository is returned when a repository is not in owner/name form.
var ErrInvalidRepository = errors.New("repository must be in owner/name form")

// Repository identifies a GitHub repository.
type Repository struct {
	// Owner is the user or organization.
	Owner string
	// Name is the repository name.
	Name string
}

// ParseRepository parses "owner/name".
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("%q: %w", s, ErrInvalidRepository)
	}

	return Repository{Owner: owner, Name: name}, nil
}

// String returns "owner/name".
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}
