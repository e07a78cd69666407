package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/discover"
	"github.com/letmevibethatforyou/discover/internal/ddb"
)

// PutItemAPI is the DynamoDB call the generator makes.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

var (
	hosts    = []string{"web-1", "web-2", "web-3", "api-1", "api-2", "worker-1"}
	statuses = []string{"ok", "ok", "ok", "ok", "warn", "error"}
	messages = map[string][]string{
		"ok":    {"request served", "cache hit", "job finished", "health check passed"},
		"warn":  {"slow response", "retrying upstream", "cache miss", "queue depth high"},
		"error": {"upstream timeout", "connection refused", "disk full", "panic recovered"},
	}
)

func generateRandomEvent(now time.Time, spread time.Duration) map[string]any {
	status := statuses[rand.IntN(len(statuses))]
	texts := messages[status]

	at := now
	if spread > 0 {
		at = now.Add(-time.Duration(rand.Int64N(int64(spread))))
	}

	return map[string]any{
		discover.TimestampField: at.UTC().Format(time.RFC3339Nano),
		"status":                status,
		"host":                  hosts[rand.IntN(len(hosts))],
		"message":               texts[rand.IntN(len(texts))],
		"bytes":                 rand.IntN(64*1024) + 128,
	}
}

func insertEvent(ctx context.Context, client PutItemAPI, tableName, indexName string, event map[string]any) error {
	id := ksuid.New().String()

	item, err := ddb.MarshalRecord(ddb.Record{
		ID:     id,
		Kind:   indexName,
		Object: event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event record: %w", err)
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}

	slog.InfoContext(ctx, "Successfully inserted event",
		"id", id,
		"index", indexName,
		"status", event["status"],
		"host", event["host"],
	)

	return nil
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	env := c.String("env")
	tableName := c.String("table-name")
	indexName := c.String("index")
	count := c.Int("count")
	spread := c.Duration("spread")

	if indexName == ddb.SavedSearchKind {
		return fmt.Errorf("index name %q is reserved for saved searches", indexName)
	}

	slog.InfoContext(ctx, "Starting event generator",
		"environment", env,
		"table", tableName,
		"index", indexName,
		"count", count,
	)

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg)

	now := time.Now()
	for i := 0; i < count; i++ {
		if err := insertEvent(ctx, client, tableName, indexName, generateRandomEvent(now, spread)); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i+1, err)
		}
	}

	slog.InfoContext(ctx, "Successfully generated and inserted all events", "count", count)
	return nil
}

func main() {
	// Configure JSON logging for AWS environments
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "generator",
		Usage: "Generate random log events and insert them into DynamoDB",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "Environment name",
				EnvVars:  []string{"ENVIRONMENT"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "table-name",
				Aliases:  []string{"t"},
				Usage:    "DynamoDB table name",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Index the events belong to",
				Value:   "logstash-events",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Number of events to generate",
				Value:   1,
			},
			&cli.DurationFlag{
				Name:  "spread",
				Usage: "Spread event timestamps over this much time before now",
				Value: 7 * 24 * time.Hour,
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
