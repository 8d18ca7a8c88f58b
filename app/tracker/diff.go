package tracker

import "strconv"

// SeenSet holds the identifiers already recorded in the index.
type SeenSet map[string]struct{}

func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s SeenSet) Len() int {
	return len(s)
}

// Diff returns the records whose key is absent from seen, in input order.
// Neither fresh nor seen is modified.
func Diff[T any](fresh []T, key func(T) string, seen SeenSet) []T {
	out := make([]T, 0, len(fresh))
	for _, rec := range fresh {
		if !seen.Has(key(rec)) {
			out = append(out, rec)
		}
	}
	return out
}

func FixKey(f LocationFix) string {
	return strconv.FormatInt(f.Time, 10)
}

func PostKey(p BlogPost) string {
	return p.ID
}

func NewFixes(fresh []LocationFix, seen SeenSet) []LocationFix {
	return Diff(fresh, FixKey, seen)
}

func NewPosts(fresh []BlogPost, seen SeenSet) []BlogPost {
	return Diff(fresh, PostKey, seen)
}
