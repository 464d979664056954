package ndwcs

import "strings"

// Path is a logical store key split into its elements
type Path []string

// NewPath normalizes a posix-style key so that keys resolve the same way
// across stores:
//   - backward slashes become forward slashes
//   - leading and trailing slashes are stripped
//   - runs of slashes collapse to one
func NewPath(posix string) Path {
	posix = strings.ReplaceAll(posix, `\`, "/")
	var p Path
	for _, el := range strings.Split(posix, "/") {
		if el != "" {
			p = append(p, el)
		}
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Join returns a new path with elems appended; p is not modified
func (p Path) Join(elems ...string) Path {
	joined := make(Path, 0, len(p)+len(elems))
	joined = append(joined, p...)
	for _, el := range elems {
		joined = append(joined, NewPath(el)...)
	}
	return joined
}
