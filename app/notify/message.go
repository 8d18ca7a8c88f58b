package notify

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// MaxBodyLength is the longest body, in characters, the gateway accepts.
const MaxBodyLength = 1600

const dateLayout = "1/2/06, 3:04 PM"

type Message struct {
	To        string
	Body      string
	MediaURLs []string
}

// Formatter renders new posts as text messages.
type Formatter struct {
	location  *time.Location
	zoneLabel string
	limit     int
}

func NewFormatter(location *time.Location, zoneLabel string) *Formatter {
	if location == nil {
		location = time.UTC
	}
	return &Formatter{location: location, zoneLabel: zoneLabel, limit: MaxBodyLength}
}

// Body returns "<date> <zone>: <title>\n\n<text>". When that exceeds the
// limit it falls back to the header with a truncated title followed by a
// link to the post.
func (f *Formatter) Body(post tracker.BlogPost, text, link string) string {
	header := f.header(post.CreatedAt)
	body := norm.NFC.String(header + post.Title + "\n\n" + text)
	if utf8.RuneCountInString(body) <= f.limit {
		return body
	}

	tail := "\n\nNew post"
	if link != "" {
		tail += ": " + link
	}

	room := f.limit - utf8.RuneCountInString(header) - utf8.RuneCountInString(tail)
	title := truncate(norm.NFC.String(post.Title), room)
	return truncate(norm.NFC.String(header+title+tail), f.limit)
}

// Message builds the text for one subscriber.
func (f *Formatter) Message(to string, post tracker.BlogPost, parsed tracker.ParsedMessage, link string) Message {
	return Message{
		To:        to,
		Body:      f.Body(post, parsed.Text, link),
		MediaURLs: parsed.PhotoURLs(),
	}
}

func (f *Formatter) header(at time.Time) string {
	return at.In(f.location).Format(dateLayout) + " " + f.zoneLabel + ": "
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

// NormalizePhone prefixes numbers that carry no country code.
func NormalizePhone(phone, countryPrefix string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return countryPrefix + digits
}
