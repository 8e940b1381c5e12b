package ingest

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection parameters
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// isPrivateHost is true for loopback, docker and RFC1918 style hosts
func isPrivateHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "host.docker.internal":
		return true
	}
	for _, prefix := range []string{"10.", "172.", "192.168."} {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// OpenClickHouse connects and pings the error_logs database
func OpenClickHouse(cfg ClickHouseConfig) (driver.Conn, error) {
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      5 * time.Second,
		MaxOpenConns:     3,
		MaxIdleConns:     2,
		ConnMaxLifetime:  5 * time.Minute,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
	// 사설망이 아니면 TLS
	if !isPrivateHost(cfg.Host) {
		options.TLS = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to open ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ingest: failed to ping ClickHouse: %w", err)
	}
	return conn, nil
}

// Execer is the part of driver.Conn the sink uses
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

const createBugReportsTable = `CREATE TABLE IF NOT EXISTS %s (
	report_id String,
	created_at DateTime64(3),
	reported_at DateTime64(3),
	error_message String,
	error_stack String,
	error_source LowCardinality(String),
	url String,
	source_app LowCardinality(String),
	user_id String,
	user_agent String,
	language LowCardinality(String),
	online UInt8,
	has_screenshot UInt8,
	action_count UInt16,
	has_description UInt8
) ENGINE = MergeTree ORDER BY (created_at, report_id)`

const insertBugReport = `INSERT INTO %s (report_id, created_at, reported_at, error_message, error_stack, error_source,
	url, source_app, user_id, user_agent, language, online, has_screenshot, action_count, has_description)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ClickHouseSink appends reports to error_logs.bug_reports for analytics
type ClickHouseSink struct {
	conn  Execer
	table string
}

// NewClickHouseSink creates a sink writing to database.bug_reports
func NewClickHouseSink(conn Execer, database string) *ClickHouseSink {
	if database == "" {
		database = "error_logs"
	}
	return &ClickHouseSink{conn: conn, table: database + ".bug_reports"}
}

// Name implements Sink
func (s *ClickHouseSink) Name() string { return "clickhouse" }

// Table 대상 테이블 (database.bug_reports)
func (s *ClickHouseSink) Table() string { return s.table }

// EnsureTable creates the table if missing
func (s *ClickHouseSink) EnsureTable(ctx context.Context) error {
	return s.conn.Exec(ctx, fmt.Sprintf(createBugReportsTable, s.table))
}

// Write implements Sink
func (s *ClickHouseSink) Write(ctx context.Context, r *Record) error {
	err := s.conn.Exec(ctx, fmt.Sprintf(insertBugReport, s.table),
		r.ReportID,
		r.CreatedAt,
		r.ReportedAt,
		r.ErrorMessage,
		deref(r.ErrorStack),
		string(r.ErrorSource),
		r.URL,
		r.SourceApp,
		deref(r.UserID),
		r.BrowserInfo.UserAgent,
		r.BrowserInfo.Language,
		boolToUInt8(r.BrowserInfo.Online),
		boolToUInt8(r.HasScreenshot()),
		uint16(min(len(r.UserActions), 65535)),
		boolToUInt8(r.UserDescription != nil && *r.UserDescription != ""),
	)
	if err != nil {
		return fmt.Errorf("clickhouse insert failed: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
