package content

import (
	"errors"
	"strings"
)

var errEmptyFilter = errors.New("filter requires a document type")

// Filter selects documents by type and optionally by id or by the post they
// reference. Empty fields are not constrained.
type Filter struct {
	Type    string
	ID      string
	PostRef string
}

func (f Filter) validate() error {
	if f.Type == "" {
		return errEmptyFilter
	}
	return nil
}

// GROQ renders the filter as a Sanity query, e.g.
// *[_type == "photo" && post._ref == "42"].
func (f Filter) GROQ() string {
	conds := []string{"_type == " + quote(f.Type)}
	if f.ID != "" {
		conds = append(conds, "_id == "+quote(f.ID))
	}
	if f.PostRef != "" {
		conds = append(conds, "post._ref == "+quote(f.PostRef))
	}
	return "*[" + strings.Join(conds, " && ") + "]"
}

func (f Filter) matches(e envelope) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.ID != "" && e.ID != f.ID {
		return false
	}
	if f.PostRef != "" && (e.Post == nil || e.Post.Ref != f.PostRef) {
		return false
	}
	return true
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
