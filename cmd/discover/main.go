package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/discover"
	"github.com/letmevibethatforyou/discover/algolia"
	"github.com/letmevibethatforyou/discover/courier"
	"github.com/letmevibethatforyou/discover/dynamostore"
	"github.com/letmevibethatforyou/discover/inmemory"
	"github.com/letmevibethatforyou/discover/notify"
	"github.com/letmevibethatforyou/discover/settings"
	"github.com/letmevibethatforyou/discover/urlstate"
)

const (
	defaultTimeout = 5 * time.Second
	defaultURL     = "/discover"
)

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "discover",
		Usage: "Run a discover session against a search backend and print the page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Search backend: memory or algolia",
				Value: "memory",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "NDJSON file loaded into the memory backend",
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Index pattern to search; Algolia index name for the algolia backend",
				EnvVars: []string{"DISCOVER_INDEX"},
				Value:   "logstash-*",
			},
			&cli.StringFlag{
				Name:    "default-index",
				Usage:   "Value of the discover.defaultIndex setting",
				EnvVars: []string{"DISCOVER_DEFAULT_INDEX"},
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringFlag{
				Name:    "saved-table",
				Usage:   "DynamoDB table holding saved searches; in-memory when empty",
				EnvVars: []string{"TABLE_NAME"},
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Page location, e.g. /discover/errors?_a=...",
				Value: defaultURL,
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query string; positional arg is a fallback",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort in field:asc or field:desc format",
			},
			&cli.StringSliceFlag{
				Name:  "columns",
				Usage: "Fields to display as columns; repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "filter",
				Usage: "Filter in field=value or field!=value format; repeatable",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Save the search under this title",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Number of hits to fetch",
				Value: discover.DefaultOptions().SampleSize,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the session",
				Value: defaultTimeout,
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		slog.WarnContext(c.Context, "timeout must be positive; using default", "timeout", timeout, "default", defaultTimeout)
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	backend, err := newBackend(ctx, c)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, c)
	if err != nil {
		return err
	}

	loc, err := urlstate.Parse(c.String("url"))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	id, ok := discover.ParseRoute(loc.Path())
	if !ok {
		return fmt.Errorf("url %q does not match %s", loc.Path(), discover.Route)
	}

	cour := courier.New(backend)
	saved, err := cour.Resolve(ctx, store, id)
	if err != nil {
		return err
	}

	initial := map[string]string{}
	if v := strings.TrimSpace(c.String("default-index")); v != "" {
		initial[discover.ConfigDefaultIndex] = v
	}
	notifier := notify.New("Discover", slog.Default())

	ctrl, err := discover.NewController(ctx, saved, cour, loc, store,
		discover.WithNotifier(notifier),
		discover.WithNavigator(loc),
		discover.WithConfig(settings.New(initial)),
		discover.WithIndex(c.String("index")),
		discover.WithSampleSize(c.Int("size")),
		discover.WithEmitter(discover.EmitterFunc(func(event string) {
			slog.DebugContext(ctx, "event", "name", event)
		})),
	)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := applyFlags(ctx, c, ctrl); err != nil {
		return err
	}

	if err := ctrl.Fetch(ctx); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	// Every operation in applyFlags queued its own delivery; apply them all
	// so the page shows the final state.
	applied, err := ctrl.Drain(ctx)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if applied == 0 {
		if err := ctrl.Next(ctx); err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
	}

	if title := strings.TrimSpace(c.String("save")); title != "" {
		ctrl.SetTitle(title)
		if err := ctrl.SaveDataSource(ctx); err != nil {
			return err
		}
	}

	return printPage(c.App.Writer, ctrl, loc, notifier)
}

func newBackend(ctx context.Context, c *cli.Context) (discover.Backend, error) {
	switch c.String("backend") {
	case "memory":
		backend := inmemory.New()
		if file := c.String("data"); file != "" {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("failed to open data: %w", err)
			}
			defer f.Close()
			index := c.String("index")
			if prefix, ok := strings.CutSuffix(index, "*"); ok {
				index = prefix + "events"
			}
			if index == "" || strings.ContainsAny(index, "*,") || index == discover.DefaultIndex {
				index = "logstash-events"
			}
			n, err := backend.LoadNDJSON(f, index)
			if err != nil {
				return nil, fmt.Errorf("failed to load data: %w", err)
			}
			slog.InfoContext(ctx, "loaded documents", "count", n, "index", index)
		}
		return backend, nil

	case "algolia":
		var fetchSecrets algolia.FetchSecrets
		if arn := strings.TrimSpace(c.String("algolia-secret-arn")); arn != "" {
			slog.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "secret_arn", arn)
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS config: %w", err)
			}
			fetchSecrets = algolia.AWSSecretsFromARN(ctx, secretsmanager.NewFromConfig(cfg), arn)
		} else {
			fetchSecrets = algolia.EnvSecrets()
		}
		return algolia.NewBackend(algolia.NewClient(fetchSecrets), c.String("index")), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", c.String("backend"))
	}
}

func newStore(ctx context.Context, c *cli.Context) (discover.SavedSearchStore, error) {
	table := strings.TrimSpace(c.String("saved-table"))
	if table == "" {
		return inmemory.NewSavedSearches(), nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamostore.New(dynamodb.NewFromConfig(cfg), table), nil
}

// applyFlags replays the command line as controller operations.
func applyFlags(ctx context.Context, c *cli.Context, ctrl *discover.Controller) error {
	query := strings.TrimSpace(c.String("query"))
	if query == "" && c.NArg() > 0 {
		query = strings.TrimSpace(c.Args().First())
	}
	if query != "" {
		if err := ctrl.SetQuery(ctx, query); err != nil {
			return err
		}
	}

	for _, raw := range c.StringSlice("filter") {
		field, op, value, err := parseFilter(raw)
		if err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
		if err := ctrl.FilterQuery(ctx, field, op, value); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(c.String("sort")); raw != "" {
		field, dir, err := parseSort(raw)
		if err != nil {
			return fmt.Errorf("invalid sort: %w", err)
		}
		if err := ctrl.SetSort(ctx, field, dir); err != nil {
			return err
		}
	}

	for _, col := range c.StringSlice("columns") {
		if err := ctrl.ToggleField(ctx, strings.TrimSpace(col)); err != nil {
			return err
		}
	}
	return nil
}

func parseFilter(raw string) (string, discover.Operation, string, error) {
	raw = strings.TrimSpace(raw)
	op := discover.Include
	sep := "="
	if strings.Contains(raw, "!=") {
		op = discover.Exclude
		sep = "!="
	}

	parts := strings.SplitN(raw, sep, 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("filter must be in field=value format: %q", raw)
	}
	field := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if field == "" || value == "" {
		return "", "", "", fmt.Errorf("filter field and value must be non-empty: %q", raw)
	}
	return field, op, value, nil
}

func parseSort(raw string) (string, discover.Direction, error) {
	field, dir, found := strings.Cut(raw, ":")
	if !found {
		dir = string(discover.Desc)
	}
	d := discover.Direction(strings.ToLower(strings.TrimSpace(dir)))
	field = strings.TrimSpace(field)
	if field == "" || !d.Valid() {
		return "", "", fmt.Errorf("sort must be in field:asc or field:desc format: %q", raw)
	}
	return field, d, nil
}

func printPage(w io.Writer, ctrl *discover.Controller, loc *urlstate.Location, notifier *notify.Notifier) error {
	columns, cells := ctrl.Table()
	state := ctrl.State()

	payload := struct {
		Location string           `json:"location"`
		Query    string           `json:"query"`
		Sort     discover.Sort    `json:"sort"`
		Columns  []string         `json:"columns"`
		Rows     [][]string       `json:"rows"`
		Chart    *discover.Chart  `json:"chart,omitempty"`
		Messages []notify.Message `json:"messages,omitempty"`
	}{
		Location: loc.String(),
		Query:    state.Query,
		Sort:     state.Sort,
		Columns:  columns,
		Rows:     cells,
		Chart:    ctrl.Chart(),
		Messages: notifier.Messages(),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
