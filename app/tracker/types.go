package tracker

import (
	"time"
)

// Upstream payload types

type routeResponse struct {
	Route []routePoint `json:"route"`
}

type routePoint struct {
	T        int64      `json:"t"`
	P        routeCoord `json:"p"`
	Bearing  float64    `json:"bearing"`
	BSP      float64    `json:"bsp"`
	TWA      float64    `json:"twa"`
	TWD      float64    `json:"twd"`
	TWS      float64    `json:"tws"`
	Gust     float64    `json:"gust"`
	IsSample bool       `json:"isSample"`
}

type routeCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type blogResponse struct {
	Posts []blogEntry `json:"posts"`
}

type blogEntry struct {
	TopicID   int64     `json:"topic_id"`
	Title     string    `json:"title"`
	Raw       string    `json:"raw"`
	Cooked    string    `json:"cooked"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalized types

// LocationFix is one flattened position report. Fixes arrive ordered by Time.
type LocationFix struct {
	Time              int64 // epoch seconds
	Latitude          float64
	Longitude         float64
	Course            float64
	BoatSpeed         float64
	TrueWindAngle     float64
	TrueWindDirection float64
	TrueWindSpeed     float64
	Gust              float64
	IsSample          bool
}

func (f LocationFix) At() time.Time {
	return time.Unix(f.Time, 0).UTC()
}

type BlogPost struct {
	ID        string // upstream topic id
	Title     string
	Raw       string
	HTML      string
	CreatedAt time.Time
}

type Photo struct {
	ID     string // filename stem
	URL    string
	Width  int
	Height int
	Alt    string
}

type ParsedMessage struct {
	Text     string
	Photos   []Photo
	Failures []PhotoFailure
}

type FailureReason string

const (
	FailureBadDimensions FailureReason = "bad_dimensions"
	FailureBadURL        FailureReason = "bad_url"
	FailureBadFilename   FailureReason = "bad_filename"
)

// PhotoFailure records a photo token that could not be fully parsed.
type PhotoFailure struct {
	Token  string
	Reason FailureReason
}

// Tracker definition types

type Config struct {
	Name     string         `yaml:"name"`
	RouteURL string         `yaml:"route_url"`
	BlogURL  string         `yaml:"blog_url"`
	PostLink string         `yaml:"post_link"` // fmt template, %s = post id
	Display  DisplaySetting `yaml:"display"`
	Timeout  int            `yaml:"timeout"` // seconds
}

type DisplaySetting struct {
	Timezone  string `yaml:"timezone"`
	ZoneLabel string `yaml:"zone_label"`
}
