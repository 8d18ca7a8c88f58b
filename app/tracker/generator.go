package tracker

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

type Channel struct {
	Title       string
	Link        string
	Description string
}

// FeedEntry is a published post as rendered into the RSS feed.
type FeedEntry struct {
	ID        string
	Title     string
	Link      string
	Text      string
	HTML      string
	CreatedAt time.Time
	UpdatedAt *time.Time
	Location  *LocationFix
	ImageURL  string
}

type Generator struct {
	selfLink string
	version  string
}

func NewGenerator(selfLink, version string) *Generator {
	return &Generator{selfLink: selfLink, version: version}
}

func (g *Generator) Run(channel Channel, entries []FeedEntry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:georss="http://www.georss.org/georss">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, fmt.Sprintf("Position reports and posts from %s", channel.Title)), 4)

	if g.selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.selfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(entries) > 0 {
		lastBuildDate = entries[0].CreatedAt
		if entries[0].UpdatedAt != nil {
			lastBuildDate = *entries[0].UpdatedAt
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Tracker-Relay/%s", g.version), 4)

	for _, entry := range entries {
		g.writeEntry(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeEntry(buf *bytes.Buffer, entry FeedEntry) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", entry.Link != ""))
	xml.EscapeText(buf, []byte(cmp.Or(entry.Link, entry.ID)))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", entry.Title, 6)
	g.writeElement(buf, "link", entry.Link, 6)
	g.writeElement(buf, "description", cmp.Or(entry.Text, "No description available"), 6)

	if entry.HTML != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(entry.HTML, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", entry.CreatedAt.Format(time.RFC1123Z), 6)

	if entry.Location != nil {
		g.writeElement(buf, "georss:point", fmt.Sprintf("%.6f %.6f", entry.Location.Latitude, entry.Location.Longitude), 6)
	}

	if entry.ImageURL != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(entry.ImageURL),
			imageType(entry.ImageURL)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func imageType(u string) string {
	if strings.HasSuffix(strings.ToLower(u), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
