package tracker

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// ContentHash fingerprints the rendered content of a post.
func ContentHash(title, html string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(title+"\x00"+html))
}
