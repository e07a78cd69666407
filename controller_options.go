package discover

import "log/slog"

// Interval is an index pattern interval choice.
type Interval struct {
	Display string
	Value   string
}

// Intervals lists the selectable index pattern intervals. The first entry
// means no interval.
var Intervals = []Interval{
	{Display: "", Value: ""},
	{Display: "Hourly", Value: "hourly"},
	{Display: "Daily", Value: "daily"},
	{Display: "Weekly", Value: "weekly"},
	{Display: "Monthly", Value: "monthly"},
	{Display: "Yearly", Value: "yearly"},
}

// Options are session-local settings. They are never persisted.
type Options struct {
	// SampleSize is the number of records to fetch, then paginate through.
	SampleSize int

	// MaxSummaryLength caps the _source summary in the table.
	MaxSummaryLength int

	// Index is the index pattern to match.
	Index string

	TimeField string

	Interval Interval

	SavedSearch *SavedSearch
}

// DefaultOptions returns the options a new controller starts with.
func DefaultOptions() Options {
	return Options{
		SampleSize:       500,
		MaxSummaryLength: 100,
		Index:            "logstash-*",
		TimeField:        TimestampField,
		Interval:         Intervals[0],
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotifier sets where save results are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithNavigator sets the location updated after a save changes the id.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.navigator = n
	}
}

// WithConfig watches ConfigDefaultIndex on cfg.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.config = cfg
	}
}

// WithEmitter receives EventApplicationLoad.
func WithEmitter(e Emitter) Option {
	return func(c *Controller) {
		c.emitter = e
	}
}

// WithSampleSize sets how many hits each fetch asks for.
func WithSampleSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.opts.SampleSize = n
		}
	}
}

// WithMaxSummaryLength sets the _source summary cap.
func WithMaxSummaryLength(n int) Option {
	return func(c *Controller) {
		c.opts.MaxSummaryLength = n
	}
}

// WithIndex sets the starting index pattern. An empty index defers to
// the ConfigDefaultIndex setting.
func WithIndex(index string) Option {
	return func(c *Controller) {
		c.opts.Index = index
	}
}
