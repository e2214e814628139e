// Package genomic holds the canonical enumerations shared by every pipeline
// component, the compatibility shim for the retired version-1 definitions and
// the error taxonomy.
package genomic

import (
	"fmt"
	"sort"
)

// EnumVersion identifies the canonical enumeration set persisted in *_str
// mirror columns. Bump it whenever a member is added, renamed or retired.
const EnumVersion = 2

func nameOf[T comparable](names map[T]string, v T, kind string) string {
	if n, ok := names[v]; ok {
		return n
	}
	return fmt.Sprintf("%s(%v)", kind, v)
}

func parseName[T comparable](names map[T]string, name, kind string) (T, error) {
	for v, n := range names {
		if n == name {
			return v, nil
		}
	}
	var zero T
	return zero, parseErr(kind, name)
}

func parseErr(kind, name string) error {
	return fmt.Errorf("unknown %s %q", kind, name)
}

func sortedNames[T comparable](names map[T]string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
