package export

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/steppush/steppush/internal/batch"
)

// ClickHouseConfig configures the ClickHouse backend.
type ClickHouseConfig struct {
	// Enabled enables the ClickHouse backend.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the ClickHouse native protocol address.
	Endpoint string `yaml:"endpoint"`

	// Database is the target database name. Defaults to "default".
	Database string `yaml:"database"`

	// Table is the target table name. Defaults to "data_points".
	Table string `yaml:"table"`

	// Username for ClickHouse authentication.
	Username string `yaml:"username"`

	// Password for ClickHouse authentication.
	Password string `yaml:"password"`

	// Migrate runs embedded schema migrations on startup.
	Migrate bool `yaml:"migrate"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *ClickHouseConfig) ApplyDefaults() {
	if c.Database == "" {
		c.Database = "default"
	}

	if c.Table == "" {
		c.Table = "data_points"
	}
}

// Validate validates the configuration.
func (c *ClickHouseConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("clickhouse endpoint is required when enabled")
	}

	return nil
}

// DSN returns the connection string used for schema migrations. It carries
// the same credentials the exporter connects with.
func (c *ClickHouseConfig) DSN() string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   c.Endpoint,
		Path:   "/" + c.Database,
	}

	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	return u.String()
}

// ClickHouseExporter writes data points to ClickHouse in one batch insert
// per publish cycle.
type ClickHouseExporter struct {
	log  logrus.FieldLogger
	cfg  ClickHouseConfig
	conn clickhouse.Conn
}

// NewClickHouseExporter creates a new ClickHouse exporter.
func NewClickHouseExporter(
	log logrus.FieldLogger,
	cfg ClickHouseConfig,
) (*ClickHouseExporter, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ClickHouseExporter{
		log: log.WithField("component", "clickhouse_exporter"),
		cfg: cfg,
	}, nil
}

// Name returns the exporter identifier.
func (e *ClickHouseExporter) Name() string { return "clickhouse" }

// Start opens and pings the ClickHouse connection.
func (e *ClickHouseExporter) Start(ctx context.Context) error {
	opts := &clickhouse.Options{
		Addr: []string{e.cfg.Endpoint},
		Auth: clickhouse.Auth{
			Database: e.cfg.Database,
			Username: e.cfg.Username,
			Password: e.cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return fmt.Errorf("opening ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("pinging ClickHouse: %w", err)
	}

	e.conn = conn

	e.log.WithField("endpoint", e.cfg.Endpoint).
		Info("ClickHouse exporter connected")

	return nil
}

// Export inserts one cycle's data points.
func (e *ClickHouseExporter) Export(ctx context.Context, points []batch.DataPoint) error {
	if len(points) == 0 {
		return nil
	}

	table := fmt.Sprintf("%s.%s", e.cfg.Database, e.cfg.Table)

	insert, err := e.conn.PrepareBatch(ctx, fmt.Sprintf(
		`INSERT INTO %s (name, tags, window_start, window_end, value, unit)`,
		table,
	))
	if err != nil {
		return fmt.Errorf("preparing %s batch: %w", e.cfg.Table, err)
	}

	for _, p := range points {
		tags := make(map[string]string, len(p.Tags))
		for _, t := range p.Tags {
			tags[t.Key] = t.Value
		}

		if err := insert.Append(
			p.Name, tags, p.Start, p.End, p.Value, p.Unit,
		); err != nil {
			return fmt.Errorf("appending %s row: %w", e.cfg.Table, err)
		}
	}

	if err := insert.Send(); err != nil {
		return fmt.Errorf("sending %s batch: %w", e.cfg.Table, err)
	}

	e.log.WithField("points", len(points)).Debug("Exported batch to ClickHouse")

	return nil
}

// Stop closes the ClickHouse connection.
func (e *ClickHouseExporter) Stop() error {
	if e.conn != nil {
		return e.conn.Close()
	}

	return nil
}
