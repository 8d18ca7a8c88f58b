package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath      string
	TrackerFile string

	// Content store configuration
	ContentBackend   string
	ContentDir       string
	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityToken      string

	// Notification configuration
	SMSEnabled       bool
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	SMSCountryPrefix string

	// Application configuration
	Port              string
	BaseUrl           string
	APIAccessKey      string
	IngestInterval    int
	ReconcileInterval int
	WorkerCount       int
	TaskTimeout       int
	WriteStaggerMs    int
	FetchCacheTTL     int
	TraceEndpoint     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetIngestInterval() time.Duration {
	return time.Duration(c.IngestInterval) * time.Second
}

func (c *Cfg) GetReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileInterval) * time.Second
}

func (c *Cfg) GetTaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeout) * time.Second
}

func (c *Cfg) GetWriteStagger() time.Duration {
	return time.Duration(c.WriteStaggerMs) * time.Millisecond
}

func (c *Cfg) GetFetchCacheTTL() time.Duration {
	return time.Duration(c.FetchCacheTTL) * time.Second
}
