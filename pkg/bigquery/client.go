package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const verifyTimeout = 10 * time.Second

var (
	ErrNotConfigured = errors.New("bigquery client not initialized")
	ErrUnknownTable  = errors.New("table is not part of the shipment warehouse")
)

// Client inserts rows into the shipment warehouse dataset. Only the tables
// named in config are writable.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  map[string]*bigquery.Table
}

// NewClient dials BigQuery and fails fast when the dataset or any configured
// table is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	names := configuredTables(cfg)
	switch {
	case project == "":
		return nil, errors.New("gcp project id is required")
	case dataset == "":
		return nil, errors.New("bigquery dataset is required")
	case len(names) == 0:
		return nil, errors.New("at least one warehouse table is required")
	}

	bq, err := bigquery.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}

	c := &Client{
		bq:      bq,
		dataset: bq.Dataset(dataset),
		tables:  make(map[string]*bigquery.Table, len(names)),
	}
	for _, name := range names {
		c.tables[name] = c.dataset.Table(name)
	}

	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset": dataset,
			"tables":  names,
		}), "bigquery.ready")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	var names []string
	seen := map[string]bool{}
	for _, raw := range []string{cfg.ShipmentFactsTable, cfg.ShipmentLotsTable} {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Ping reads dataset and table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset", c.dataset.DatasetID, err)
	}
	for name, table := range c.tables {
		if _, err := table.Metadata(ctx); err != nil {
			return describe("table", name, err)
		}
	}
	return nil
}

// InsertRows streams rows into one of the configured tables.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return ErrNotConfigured
	}
	target, ok := c.tables[strings.TrimSpace(table)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if len(rows) == 0 {
		return nil
	}
	return target.Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func describe(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}
