package match

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPath is returned for an empty field path argument.
	ErrEmptyPath = errors.New("empty field path")
	// ErrEmptySegment is returned when a dotted path has an empty segment,
	// as in "user..email" or ".user".
	ErrEmptySegment = errors.New("empty path segment")
)

// Path is an ordered, non-empty sequence of field names.
type Path []string

// ParsePath splits a dotted field path such as "user.profile.email" into its
// segments.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}
	segments := strings.Split(s, ".")
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w at position %d in %q", ErrEmptySegment, i, s)
		}
	}
	return Path(segments), nil
}

// String rejoins the path with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}
