// Package algolia serves discover searches from an Algolia index.
package algolia

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// WriteApiKey is the Algolia write API key.
	WriteApiKey string `json:"write_api_key"`
}

// FetchSecrets is a function type that retrieves Algolia credentials.
// It allows for different secret retrieval strategies (static, environment variables, etc.).
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(appID, writeApiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{
			AppID:       appID,
			WriteApiKey: writeApiKey,
		}, nil
	}
}

// EnvSecrets reads ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, fmt.Errorf("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, fmt.Errorf("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{
			AppID:       appID,
			WriteApiKey: apiKey,
		}, nil
	}
}

// Client lazily builds the Algolia client on first use and traces every call.
type Client struct {
	getClient func() (*search.Client, error)
	tracer    trace.Tracer
}

// NewClient creates a Client. Secrets are fetched once, on the first call.
func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch secrets: %w", err)
		}

		if secrets.AppID == "" {
			return nil, fmt.Errorf("AppID is empty")
		}

		if secrets.WriteApiKey == "" {
			return nil, fmt.Errorf("WriteApiKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.WriteApiKey), nil
	})

	return &Client{
		getClient: getClient,
		tracer:    otel.Tracer("discover-algolia"),
	}
}

// Search runs a query with raw Algolia parameters.
func (c *Client) Search(ctx context.Context, indexName, query string, params ...interface{}) (search.QueryRes, error) {
	_, span := c.tracer.Start(ctx, "algolia.search",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.param_count", len(params)),
		),
	)
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return search.QueryRes{}, err
	}

	res, err := client.InitIndex(indexName).Search(query, params...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to search index %s", indexName))
		return search.QueryRes{}, fmt.Errorf("failed to search Algolia index %s: %w", indexName, err)
	}

	span.SetAttributes(attribute.Int("algolia.hit_count", res.NbHits))
	span.SetStatus(codes.Ok, "search complete")
	return res, nil
}

// SaveObject indexes one event.
func (c *Client) SaveObject(ctx context.Context, indexName string, object map[string]interface{}) error {
	_, span := c.tracer.Start(ctx, "algolia.save_object",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
		),
	)
	defer span.End()

	if id, ok := object["objectID"].(string); ok {
		span.SetAttributes(attribute.String("algolia.object_id", id))
	}

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return err
	}

	if _, err := client.InitIndex(indexName).SaveObject(object); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to save object to index %s", indexName))
		return fmt.Errorf("failed to save object to Algolia index %s: %w", indexName, err)
	}

	span.SetStatus(codes.Ok, "object saved successfully")
	return nil
}

// DeleteObject removes one event.
func (c *Client) DeleteObject(ctx context.Context, indexName string, objectID string) error {
	_, span := c.tracer.Start(ctx, "algolia.delete_object",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.String("algolia.object_id", objectID),
		),
	)
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return err
	}

	if _, err := client.InitIndex(indexName).DeleteObject(objectID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to delete object from index %s", indexName))
		return fmt.Errorf("failed to delete object from Algolia index %s: %w", indexName, err)
	}

	span.SetStatus(codes.Ok, "object deleted successfully")
	return nil
}
