package tracker

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	photoTokenOpen = "![Photo|"
	photoTokenMid  = "]("
)

// The stem becomes the photo document id, so it is limited to the characters
// document ids accept.
var photoFilenamePattern = regexp.MustCompile(`(?i)^([a-z0-9._-]+)\.(jpe?g|png)$`)

// ParseMessage splits a raw post body into plain text and the photos embedded
// as ![Photo|WxH](URL) tokens. Tokens that cannot be fully parsed are reported
// in Failures and never appear in Photos. ParseMessage performs no I/O.
func ParseMessage(raw string) ParsedMessage {
	var (
		text     strings.Builder
		photos   []Photo
		failures []PhotoFailure
	)

	rest := raw
	for {
		start := strings.Index(rest, photoTokenOpen)
		if start < 0 {
			text.WriteString(rest)
			break
		}

		token, ok := scanPhotoToken(rest[start:])
		if !ok {
			// Not a complete token; keep the opener as text and move past it.
			text.WriteString(rest[:start+len(photoTokenOpen)])
			rest = rest[start+len(photoTokenOpen):]
			continue
		}

		text.WriteString(rest[:start])
		rest = rest[start+len(token.raw):]

		photo, reason := token.photo()
		if reason != "" {
			failures = append(failures, PhotoFailure{Token: token.raw, Reason: reason})
			continue
		}
		photos = append(photos, photo)
	}

	return ParsedMessage{
		Text:     strings.TrimSpace(text.String()),
		Photos:   photos,
		Failures: failures,
	}
}

type photoToken struct {
	raw  string
	dims string
	url  string
}

// scanPhotoToken reads one token from the start of s, which begins with
// photoTokenOpen. Closing parens directly after the token belong to it.
func scanPhotoToken(s string) (photoToken, bool) {
	body := s[len(photoTokenOpen):]

	mid := strings.Index(body, photoTokenMid)
	if mid < 0 || strings.ContainsAny(body[:mid], "\n[]") {
		return photoToken{}, false
	}
	dims := body[:mid]

	urlStart := mid + len(photoTokenMid)
	depth := 0
	end := -1
	for i := urlStart; i < len(body); i++ {
		c := body[i]
		if c == '\n' {
			break
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			if depth == 0 {
				end = i
				break
			}
			depth--
		}
	}
	if end < 0 {
		return photoToken{}, false
	}

	consumed := end + 1
	for consumed < len(body) && body[consumed] == ')' {
		consumed++
	}

	return photoToken{
		raw:  s[:len(photoTokenOpen)+consumed],
		dims: dims,
		url:  strings.TrimSpace(body[urlStart:end]),
	}, true
}

func (t photoToken) photo() (Photo, FailureReason) {
	width, height, ok := parseDimensions(t.dims)
	if !ok {
		return Photo{}, FailureBadDimensions
	}

	u, err := url.Parse(t.url)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Photo{}, FailureBadURL
	}

	match := photoFilenamePattern.FindStringSubmatch(path.Base(u.Path))
	if match == nil {
		return Photo{}, FailureBadFilename
	}

	return Photo{
		ID:     match[1],
		URL:    t.url,
		Width:  width,
		Height: height,
	}, ""
}

func parseDimensions(dims string) (int, int, bool) {
	w, h, found := strings.Cut(dims, "x")
	if !found || !isDigits(w) || !isDigits(h) {
		return 0, 0, false
	}

	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// PhotoURLs returns the source URLs of photos in order.
func (m ParsedMessage) PhotoURLs() []string {
	urls := make([]string, 0, len(m.Photos))
	for _, p := range m.Photos {
		urls = append(urls, p.URL)
	}
	return urls
}
