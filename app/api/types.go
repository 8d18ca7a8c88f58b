package api

import (
	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/database"
	"github.com/lysyi3m/tracker-relay/app/tasks"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

type GeneratorInterface interface {
	Run(channel tracker.Channel, entries []tracker.FeedEntry) (string, error)
}

var _ GeneratorInterface = (*tracker.Generator)(nil)

type Handler struct {
	tracker     *tracker.Config
	locations   database.LocationRepository
	posts       database.PostRepository
	subscribers database.SubscriberRepository
	store       content.Store
	generator   GeneratorInterface
	scheduler   tasks.TaskSchedulerInterface
	status      *tasks.Status
	phonePrefix string
}

// Repositories groups the index tables the handlers read from.
type Repositories struct {
	Locations   database.LocationRepository
	Posts       database.PostRepository
	Subscribers database.SubscriberRepository
}

type subscribeRequest struct {
	Phone string `json:"phone"`
}
