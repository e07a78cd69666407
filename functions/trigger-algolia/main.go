package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/discover/algolia"
	"github.com/letmevibethatforyou/discover/internal/ddb"
)

// ObjectIndexer writes objects to a search index.
type ObjectIndexer interface {
	SaveObject(ctx context.Context, indexName string, object map[string]interface{}) error
	DeleteObject(ctx context.Context, indexName string, objectID string) error
}

var _ ObjectIndexer = (*algolia.Client)(nil)

type Handler struct {
	tableName string
	indexer   ObjectIndexer
}

func NewHandler(tableName string, indexer ObjectIndexer) *Handler {
	return &Handler{
		tableName: tableName,
		indexer:   indexer,
	}
}

// HandleStreamEvent mirrors event items into the search index named by
// their sort key. Saved search items live in the same table and are skipped.
func (h *Handler) HandleStreamEvent(ctx context.Context, e events.DynamoDBEvent) error {
	slog.InfoContext(ctx, "Processing DynamoDB stream records", "table", h.tableName, "record_count", len(e.Records))

	for _, record := range e.Records {
		if err := h.processRecord(ctx, record); err != nil {
			slog.ErrorContext(ctx, "Error processing record", "event_id", record.EventID, "error", err)
			return err
		}
	}

	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	switch ddb.Operation(record) {
	case events.DynamoDBOperationTypeInsert, events.DynamoDBOperationTypeModify:
		if record.Change.NewImage == nil {
			slog.WarnContext(ctx, "No new image for insert/modify operation, skipping record")
			return nil
		}

		parsedRecord, err := ddb.UnmarshalStreamImage(record.Change.NewImage)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal record, skipping", "error", err)
			return nil
		}
		if !h.indexable(ctx, parsedRecord) {
			return nil
		}
		if parsedRecord.Object == nil {
			slog.WarnContext(ctx, "Missing Object in record, skipping record", "id", parsedRecord.ID, "index", parsedRecord.Kind)
			return nil
		}

		return h.handleUpsert(ctx, &parsedRecord)

	case events.DynamoDBOperationTypeRemove:
		parsedRecord, err := ddb.UnmarshalStreamImage(record.Change.Keys)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal keys for delete operation, skipping", "error", err)
			return nil
		}
		if !h.indexable(ctx, parsedRecord) {
			return nil
		}

		return h.handleDelete(ctx, parsedRecord.Kind, parsedRecord.ID)

	default:
		slog.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
		return nil
	}
}

func (h *Handler) indexable(ctx context.Context, record ddb.Record) bool {
	switch {
	case record.ID == "":
		slog.WarnContext(ctx, "Missing ID (pk) in record, skipping record")
		return false
	case record.Kind == "":
		slog.WarnContext(ctx, "Missing index name (sk) in record, skipping record", "id", record.ID)
		return false
	case record.IsSavedSearch():
		slog.DebugContext(ctx, "Skipping saved search record", "id", record.ID)
		return false
	}
	return true
}

func (h *Handler) handleUpsert(ctx context.Context, record *ddb.Record) error {
	object := make(map[string]interface{}, len(record.Object)+1)
	for k, v := range record.Object {
		object[k] = v
	}
	object["objectID"] = record.ID

	slog.InfoContext(ctx, "Saving object to Algolia", "object_id", record.ID, "index", record.Kind)
	return h.indexer.SaveObject(ctx, record.Kind, object)
}

func (h *Handler) handleDelete(ctx context.Context, indexName, objectID string) error {
	slog.InfoContext(ctx, "Deleting object from Algolia", "object_id", objectID, "index", indexName)
	return h.indexer.DeleteObject(ctx, indexName, objectID)
}

func main() {
	app := &cli.App{
		Name:  "dynamodb-algolia-sync",
		Usage: "Sync DynamoDB stream events to Algolia",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "table-name",
				Usage:    "DynamoDB table name to sync from",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager (takes precedence over API key/ID flags)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "algolia-app-id",
				Usage:   "Algolia application ID",
				EnvVars: []string{"ALGOLIA_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "algolia-api-key",
				Usage:   "Algolia API key",
				EnvVars: []string{"ALGOLIA_API_KEY"},
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	tableName := c.String("table-name")
	env := c.String("env")
	algoliaAppID := c.String("algolia-app-id")
	algoliaAPIKey := c.String("algolia-api-key")

	slog.InfoContext(ctx, "Starting DynamoDB to Algolia sync", "table", tableName, "environment", env)

	var fetchSecrets algolia.FetchSecrets
	switch {
	case env != "":
		slog.InfoContext(ctx, "Using AWS Secrets Manager for credentials", "environment", env)
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load AWS config", "error", err)
			return err
		}
		fetchSecrets = algolia.AWSSecrets(ctx, secretsmanager.NewFromConfig(cfg), env)
	case algoliaAppID != "" && algoliaAPIKey != "":
		slog.InfoContext(ctx, "Using static credentials from flags")
		fetchSecrets = algolia.StaticSecrets(algoliaAppID, algoliaAPIKey)
	default:
		slog.InfoContext(ctx, "Using environment variables for credentials")
		fetchSecrets = algolia.EnvSecrets()
	}

	handler := NewHandler(tableName, algolia.NewClient(fetchSecrets))

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		slog.InfoContext(ctx, "Running in Lambda environment")
		lambda.Start(handler.HandleStreamEvent)
	} else {
		slog.InfoContext(ctx, "Function cannot run outside of AWS Lambda environment")
	}

	return nil
}
