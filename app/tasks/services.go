package tasks

import (
	"go.opentelemetry.io/otel"

	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/database"
	"github.com/lysyi3m/tracker-relay/app/notify"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

var tracer = otel.Tracer("tasks")

// Services bundles what the ingest and reconcile tasks depend on.
type Services struct {
	Tracker     *tracker.Config
	Client      FeedClient
	Registry    database.SeenRegistry
	Subscribers database.SubscriberRepository
	Store       content.Store
	Publisher   *Publisher
	Formatter   *notify.Formatter
	SMSEnabled  bool
	Sender      notify.Sender
	PhonePrefix string
	Status      *Status
}
