// Package datawarehouse pushes approved estimate totals to the MS SQL
// Server reporting warehouse. The connection is optional; with reporting
// disabled the client is nil and every push is a no-op.
package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/smetaworks/estimate-api/internal/config"
	"github.com/smetaworks/estimate-api/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0
)

// Client provides access to the reporting warehouse
type Client struct {
	db           *sql.DB
	config       *config.ReportingConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// NewClient creates a reporting warehouse client. Returns (nil, nil) when
// reporting is disabled or credentials are missing; the caller treats a nil
// client as "reporting off".
func NewClient(cfg *config.ReportingConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Reporting warehouse disabled")
		return nil, nil
	}
	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("Reporting warehouse enabled but missing credentials, skipping connection")
		return nil, nil
	}

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff
	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		db, err = sql.Open("sqlserver", connStr)
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				break
			}
			_ = db.Close()
			db = nil
		}

		logger.Warn("Reporting warehouse connection attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))
		if attempt < defaultMaxRetries {
			time.Sleep(backoff)
			backoff = time.Duration(float64(backoff) * defaultBackoffFactor)
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}
	if db == nil {
		return nil, fmt.Errorf("failed to connect to reporting warehouse: %w", err)
	}

	logger.Info("Reporting warehouse connected")
	return &Client{
		db:           db,
		config:       cfg,
		logger:       logger,
		queryTimeout: cfg.QueryTimeoutDuration(),
	}, nil
}

// buildConnectionString converts "host:port/database" plus credentials into
// a sqlserver URL.
func buildConnectionString(cfg *config.ReportingConfig) (string, error) {
	parts := strings.SplitN(cfg.URL, "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("reporting URL must be host:port/database, got %q", cfg.URL)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     parts[0],
		RawQuery: url.Values{"database": {parts[1]}}.Encode(),
	}
	return u.String(), nil
}

// PushDocumentTotals upserts one approved document's totals into the
// reporting table.
func (c *Client) PushDocumentTotals(ctx context.Context, doc *domain.EstimateDocument) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	const query = `
MERGE INTO estimate_totals AS target
USING (SELECT @p1 AS document_id) AS source
ON target.document_id = source.document_id
WHEN MATCHED THEN UPDATE SET
    name = @p2, number = @p3,
    total_direct = @p4, total_overhead = @p5, total_profit = @p6,
    total_amount = @p7, total_amount_with_vat = @p8,
    pushed_at = SYSUTCDATETIME()
WHEN NOT MATCHED THEN INSERT
    (document_id, name, number, total_direct, total_overhead, total_profit,
     total_amount, total_amount_with_vat, pushed_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, SYSUTCDATETIME());`

	_, err := c.db.ExecContext(ctx, query,
		doc.ID.String(), doc.Name, doc.Number,
		doc.TotalDirect, doc.TotalOverhead, doc.TotalProfit,
		doc.TotalAmount, doc.TotalAmountWithVAT)
	if err != nil {
		return fmt.Errorf("failed to push document totals: %w", err)
	}

	c.logger.Debug("Document totals pushed to reporting warehouse",
		zap.String("document_id", doc.ID.String()))
	return nil
}

// Ping verifies connectivity for health checks
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("reporting warehouse not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
