package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/damoang/angple-bugreport/internal/config"
	"github.com/damoang/angple-bugreport/internal/database"
	"github.com/damoang/angple-bugreport/internal/ingest"
	pkges "github.com/damoang/angple-bugreport/pkg/elasticsearch"
	pkglogger "github.com/damoang/angple-bugreport/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Migration target constants
const (
	targetMySQL         = "mysql"
	targetClickHouse    = "clickhouse"
	targetElasticsearch = "elasticsearch"
)

func main() {
	// CLI flags
	configPath := flag.String("config", config.Path(), "config file path")
	target := flag.String("target", "all", "schema target: all, mysql, clickhouse, elasticsearch")
	dryRun := flag.Bool("dry-run", false, "print what would be created without executing")
	verify := flag.Bool("verify", false, "compare bug_reports row counts across stores")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv(".")
	pkglogger.InitStructured(os.Getenv("APP_ENV"), "angple-bugreport-migrate")

	cfg, err := config.Load(*configPath)
	if err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("failed to load config")
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *verify {
		runVerify(ctx, cfg, logLevel)
		return
	}

	start := time.Now()
	for _, t := range parseTargets(*target) {
		tStart := time.Now()
		var err error
		switch t {
		case targetMySQL:
			err = migrateMySQL(cfg, logLevel, *dryRun)
		case targetClickHouse:
			err = migrateClickHouse(ctx, cfg, *dryRun)
		case targetElasticsearch:
			err = migrateElasticsearch(ctx, cfg, *dryRun)
		default:
			pkglogger.Warn("[migrate] Unknown target: %s", t)
			continue
		}
		if err != nil {
			pkglogger.GetLogger().Fatal().Err(err).Str("target", t).Msg("[migrate] FAILED")
		}
		pkglogger.Info("[migrate] Completed %s in %v", t, time.Since(tStart))
	}
	pkglogger.Info("[migrate] All targets completed in %v", time.Since(start))
}

func parseTargets(target string) []string {
	if target == "all" {
		return []string{targetMySQL, targetClickHouse, targetElasticsearch}
	}
	var targets []string
	for _, t := range strings.Split(target, ",") {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}

// --- Targets ---

func migrateMySQL(cfg *config.Config, level gormlogger.LogLevel, dryRun bool) error {
	db, err := database.Open(cfg.Database, level)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck

	if dryRun {
		exists := db.Migrator().HasTable(&ingest.Record{})
		pkglogger.Info("[dry-run:mysql] bug_reports exists=%t, AutoMigrate would add missing columns and indexes", exists)
		return nil
	}
	return ingest.NewGormRepository(db).AutoMigrate()
}

// printExecer ClickHouse DDL을 실행하지 않고 출력만 한다
type printExecer struct{}

func (printExecer) Exec(_ context.Context, query string, _ ...any) error {
	fmt.Println(query)
	return nil
}

func migrateClickHouse(ctx context.Context, cfg *config.Config, dryRun bool) error {
	if dryRun {
		pkglogger.Info("[dry-run:clickhouse] DDL for %s.bug_reports:", cfg.ClickHouse.Database)
		return ingest.NewClickHouseSink(printExecer{}, cfg.ClickHouse.Database).EnsureTable(ctx)
	}
	if cfg.ClickHouse.Host == "" {
		pkglogger.Warn("[migrate:clickhouse] CLICKHOUSE_HOST not set, skipping")
		return nil
	}
	conn, err := openClickHouse(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return ingest.NewClickHouseSink(conn, cfg.ClickHouse.Database).EnsureTable(ctx)
}

func migrateElasticsearch(ctx context.Context, cfg *config.Config, dryRun bool) error {
	if dryRun {
		pkglogger.Info("[dry-run:elasticsearch] would create index %q with %d mapped fields",
			cfg.Search.Index, len(ingest.IndexMapping["mappings"].(map[string]interface{})["properties"].(map[string]interface{})))
		return nil
	}
	if !cfg.Search.Enabled || len(cfg.Search.Addresses) == 0 {
		pkglogger.Warn("[migrate:elasticsearch] search disabled, skipping")
		return nil
	}
	client, err := pkges.NewClient(cfg.Search.Addresses, cfg.Search.Username, cfg.Search.Password)
	if err != nil {
		return err
	}
	return client.CreateIndex(ctx, cfg.Search.Index, ingest.IndexMapping)
}

func openClickHouse(cfg *config.Config) (driver.Conn, error) {
	return ingest.OpenClickHouse(ingest.ClickHouseConfig{
		Host:     cfg.ClickHouse.Host,
		Port:     cfg.ClickHouse.Port,
		Database: cfg.ClickHouse.Database,
		User:     cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	})
}

// --- Verify ---

func runVerify(ctx context.Context, cfg *config.Config, level gormlogger.LogLevel) {
	db, err := database.Open(cfg.Database, level)
	if err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("[verify] mysql unavailable")
	}
	defer database.Close(db) //nolint:errcheck

	mysqlCount := countMySQL(db)

	var chCount int64 = -1
	if cfg.ClickHouse.Host != "" {
		if conn, err := openClickHouse(cfg); err != nil {
			pkglogger.Warn("[verify] clickhouse unavailable: %v", err)
		} else {
			var n uint64
			query := fmt.Sprintf("SELECT count() FROM %s.bug_reports", cfg.ClickHouse.Database)
			if err := conn.QueryRow(ctx, query).Scan(&n); err != nil {
				pkglogger.Warn("[verify] clickhouse count failed: %v", err)
			} else {
				chCount = int64(n)
			}
			conn.Close()
		}
	}

	fmt.Println()
	fmt.Println("╔══════════════╦══════════════╦═══════╗")
	fmt.Println("║ Store        ║  bug_reports ║ Match ║")
	fmt.Println("╠══════════════╬══════════════╬═══════╣")
	fmt.Printf("║ %-12s ║ %12d ║   -   ║\n", targetMySQL, mysqlCount)
	if chCount >= 0 {
		match := "✗"
		if chCount == mysqlCount {
			match = "✓"
		}
		fmt.Printf("║ %-12s ║ %12d ║   %s   ║\n", targetClickHouse, chCount, match)
	}
	fmt.Println("╚══════════════╩══════════════╩═══════╝")
	fmt.Println()
}

func countMySQL(db *gorm.DB) int64 {
	var n int64
	if err := db.Model(&ingest.Record{}).Count(&n).Error; err != nil {
		pkglogger.Warn("[verify] mysql count failed: %v", err)
		return -1
	}
	return n
}
