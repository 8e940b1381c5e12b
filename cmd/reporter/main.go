package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damoang/angple-bugreport/internal/config"
	"github.com/damoang/angple-bugreport/internal/connectivity"
	"github.com/damoang/angple-bugreport/internal/events"
	"github.com/damoang/angple-bugreport/internal/identity"
	"github.com/damoang/angple-bugreport/internal/metrics"
	"github.com/damoang/angple-bugreport/internal/reporter"
	pkglogger "github.com/damoang/angple-bugreport/pkg/logger"
	pkgredis "github.com/damoang/angple-bugreport/pkg/redis"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: reporter <command> [flags]

commands:
  send   submit a manual bug report
  flush  replay the offline queue
  queue  list queued reports
  watch  keep probing the endpoint and flush on reconnect`

// session 한 번의 CLI 실행에 필요한 구성요소
type session struct {
	cfg      *config.Config
	probe    *connectivity.Probe
	env      *reporter.HostEnvironment
	pipeline *reporter.Pipeline
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	config.LoadDotEnv(".")
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env, "angple-bugreport-reporter")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "send":
		err = runSend(ctx, args)
	case "flush":
		err = runFlush(ctx, args)
	case "queue":
		err = runQueue(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		pkglogger.GetLogger().Error().Err(err).Str("command", os.Args[1]).Msg("reporter failed")
		os.Exit(1)
	}
}

func runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	description := fs.String("description", "", "what went wrong (required)")
	pageURL := fs.String("url", "", "page the report is about; also the screenshot target")
	withShot := fs.Bool("screenshot", false, "attach a screenshot of -url")
	width := fs.Int("width", 1280, "viewport width for the screenshot")
	height := fs.Int("height", 800, "viewport height for the screenshot")
	token := fs.String("token", os.Getenv("DAMOANG_JWT"), "damoang_jwt of the reporter")
	_ = fs.Parse(args)

	s, err := open(ctx, *token, *withShot)
	if err != nil {
		return err
	}
	defer s.pipeline.Close()

	if *pageURL != "" {
		s.env.SetURL(*pageURL)
	}
	s.env.SetViewport(*width, *height)
	s.probe.Check(ctx)

	c := s.pipeline.Controller
	c.OpenManualReport()
	c.SetDescription(*description)
	res, err := c.SubmitReport(ctx, *description, *withShot)
	if toast := c.State().Toast; toast.Visible {
		fmt.Println(toast.Message)
	}
	if err != nil {
		return err
	}
	fmt.Printf("report %s: %s\n", res.ReportID, res.Outcome)
	return nil
}

func runFlush(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("flush", flag.ExitOnError)
	_ = fs.Parse(args)

	s, err := open(ctx, "", false)
	if err != nil {
		return err
	}
	defer s.pipeline.Close()

	if !s.probe.Check(ctx) {
		return errors.New("endpoint unreachable, queue kept")
	}
	res := s.pipeline.Controller.Flush(ctx)
	fmt.Printf("attempted %d, delivered %d, requeued %d\n", res.Attempted, res.Delivered, res.Requeued)
	return nil
}

func runQueue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	_ = fs.Parse(args)

	s, err := open(ctx, "", false)
	if err != nil {
		return err
	}
	defer s.pipeline.Close()

	entries, err := s.pipeline.Queue.Entries()
	if err != nil {
		return err
	}
	type row struct {
		ReportID string    `json:"report_id"`
		Source   string    `json:"error_source"`
		Message  string    `json:"error_message"`
		QueuedAt time.Time `json:"queued_at"`
		Attempts int       `json:"attempts"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{
			ReportID: e.Payload.ReportID,
			Source:   string(e.Payload.ErrorSource),
			Message:  e.Payload.ErrorMessage,
			QueuedAt: e.QueuedAt,
			Attempts: e.Attempts,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	_ = fs.Parse(args)

	s, err := open(ctx, "", false)
	if err != nil {
		return err
	}
	defer s.pipeline.Close()

	// 온라인 전환 시 컨트롤러가 큐를 비운다
	s.pipeline.Controller.Start(ctx)
	pkglogger.Info("watching %s every %s", s.cfg.Reporter.Probe.URL, s.cfg.Reporter.Probe.Interval)
	s.probe.Run(ctx)
	return nil
}

// open loads config and wires the pipeline with a probe as connectivity signal
func open(ctx context.Context, token string, screenshot bool) (*session, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, err
	}
	cfg.Reporter.Screenshot.Enabled = screenshot

	log := pkglogger.With("reporter")
	bus := events.NewBus(log)
	probe := connectivity.NewProbe(cfg.Reporter.Probe.URL, cfg.Reporter.Probe.Interval, bus, log)
	env := reporter.NewHostEnvironment(reporter.DefaultBrowserInfo("angple-bugreport-cli/1.0", cfg.Reporter.Locale), probe)

	var provider identity.Provider = identity.NewStatic("", "")
	if token != "" && cfg.JWT.DamoangSecret != "" {
		provider = identity.NewJWTProvider(cfg.JWT.DamoangSecret, identity.StaticToken(token))
	}

	var redisClient *redis.Client
	if cfg.Reporter.Queue.Backend == "redis" || cfg.Reporter.RateLimit.Shared {
		redisClient, err = pkgredis.NewClient(ctx, pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
	}

	pipeline, err := reporter.Build(cfg, reporter.Runtime{
		Bus:         bus,
		Signal:      probe,
		Environment: env,
		Identity:    provider,
		Redis:       redisClient,
		SessionID:   sessionID(),
		Metrics:     metrics.NewPipeline(prometheus.NewRegistry()),
		Logger:      log,
	})
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, err
	}
	return &session{cfg: cfg, probe: probe, env: env, pipeline: pipeline}, nil
}

// sessionID keys the shared rate limit; BUGREPORT_SESSION_ID pins it across runs
func sessionID() string {
	if v := os.Getenv("BUGREPORT_SESSION_ID"); v != "" {
		return v
	}
	return uuid.NewString()
}
