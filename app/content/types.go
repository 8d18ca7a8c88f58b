package content

import (
	"errors"
	"time"
)

const (
	TypePost  = "post"
	TypePhoto = "photo"
)

type ReplaceState string

const (
	ReplaceStatePending  ReplaceState = "pending-replace"
	ReplaceStateReplaced ReplaceState = "replaced"
)

var ErrNotFound = errors.New("document not found")

// Document is anything the content store can persist under its own id.
type Document interface {
	DocumentID() string
	DocumentType() string
}

type Reference struct {
	Type string `json:"_type"`
	Ref  string `json:"_ref"`
}

type Location struct {
	Time              int64   `json:"time"`
	Latitude          float64 `json:"lat"`
	Longitude         float64 `json:"lon"`
	Course            float64 `json:"course"`
	BoatSpeed         float64 `json:"boatSpeed"`
	TrueWindAngle     float64 `json:"trueWindAngle"`
	TrueWindDirection float64 `json:"trueWindDirection"`
	TrueWindSpeed     float64 `json:"trueWindSpeed"`
	Gust              float64 `json:"gust"`
}

type Post struct {
	ID           string       `json:"_id"`
	Type         string       `json:"_type"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	HTML         string       `json:"html"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty"`
	Location     *Location    `json:"location,omitempty"`
	ReplaceState ReplaceState `json:"replaceState,omitempty"`
	ContentHash  string       `json:"contentHash,omitempty"`
}

func (p *Post) DocumentID() string   { return p.ID }
func (p *Post) DocumentType() string { return TypePost }

type Photo struct {
	ID     string    `json:"_id"`
	Type   string    `json:"_type"`
	URL    string    `json:"url"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Alt    string    `json:"alt"`
	Post   Reference `json:"post"`
}

func (p *Photo) DocumentID() string   { return p.ID }
func (p *Photo) DocumentType() string { return TypePhoto }

func NewPostReference(postID string) Reference {
	return Reference{Type: "reference", Ref: postID}
}

// envelope holds the fields every filter can match on.
type envelope struct {
	ID   string     `json:"_id"`
	Type string     `json:"_type"`
	Post *Reference `json:"post,omitempty"`
}
