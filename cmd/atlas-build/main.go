package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vanshika/internet-atlas/backend/internal/config"
	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/export"
	"github.com/vanshika/internet-atlas/backend/internal/graph"
	"github.com/vanshika/internet-atlas/backend/internal/ingest"
	"github.com/vanshika/internet-atlas/backend/internal/logging"
	"github.com/vanshika/internet-atlas/backend/internal/metrics"
	"github.com/vanshika/internet-atlas/backend/internal/repository"
	"github.com/vanshika/internet-atlas/backend/internal/service"
	"github.com/vanshika/internet-atlas/backend/internal/store/file"
	"github.com/vanshika/internet-atlas/backend/internal/store/postgres"
	"github.com/vanshika/internet-atlas/backend/internal/store/redis"
)

const (
	sinkNeo4j    = "neo4j"
	sinkPostgres = "postgres"
	sinkRedis    = "redis"
)

var knownSinks = []string{sinkNeo4j, sinkPostgres, sinkRedis}

type buildOptions struct {
	sessions string
	outDir   string
	suffix   string
	workers  int
	publish  []string
	top      int
	indent   bool
	metrics  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "atlas-build",
		Short: "Builds the browsing transition graph from a session export",
		Long: `Reads a CSV or XLSX session export, cleans it, sequences every user's
visits into domain transitions and writes the aggregated edges, per-user
edges and node statistics as JSON artifacts. Optional sinks receive the
same graph.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.sessions, "sessions", "s", "", "Path to the session export (.csv or .xlsx)")
	flags.StringVarP(&opts.outDir, "out-dir", "o", "", "Artifact directory (defaults to ARTIFACT_DIR)")
	flags.StringVar(&opts.suffix, "suffix", "", "Artifact file suffix (defaults to ARTIFACT_SUFFIX)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Sequencing workers (defaults to BUILD_WORKERS)")
	flags.StringSliceVar(&opts.publish, "publish", nil, "Extra sinks to publish to: neo4j, postgres, redis")
	flags.IntVar(&opts.top, "top", 10, "Number of top edges to print")
	flags.BoolVar(&opts.indent, "indent", false, "Indent JSON artifacts")
	flags.StringVar(&opts.metrics, "metrics-file", "", "Prometheus textfile for build metrics (defaults to <out-dir>/build_metrics_<suffix>.prom)")
	_ = cmd.MarkFlagRequired("sessions")

	return cmd
}

func runBuild(cmd *cobra.Command, opts buildOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)

	sinkNames, err := parseSinks(opts.publish)
	if err != nil {
		return err
	}

	logger := logging.Component(logging.New(cfg.Logging), "atlas-build")

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputs, err := ingest.ReadFile(opts.sessions)
	if err != nil {
		logger.Error("failed to read sessions", "error", err, "path", opts.sessions)
		return err
	}
	logger.Info("sessions loaded", "rows", len(inputs), "path", opts.sessions)

	recorder := metrics.New(prometheus.NewRegistry())
	metricsPath := opts.metrics
	if metricsPath == "" {
		metricsPath = filepath.Join(cfg.Artifacts.Dir, "build_metrics_"+cfg.Artifacts.Suffix+".prom")
	}
	defer func() {
		if err := recorder.WriteTextfile(metricsPath); err != nil {
			logger.Warn("failed to write build metrics", "error", err)
			return
		}
		logger.Debug("build metrics written", "path", metricsPath)
	}()

	svc := service.NewGraphService(recorder, cfg.Build.Workers)
	svc.WithLogger(logger)

	g, report, err := svc.Build(ctx, inputs)
	logCleanReport(logger, report)
	if err != nil {
		if errors.Is(err, service.ErrNoValidSessions) {
			logger.Error("nothing to build", "rows", report.Total)
		} else {
			logger.Error("build failed", "error", err)
		}
		return err
	}

	runLogger := logging.WithRun(logger, g.RunID)
	runLogger.Info("graph built",
		"users", g.Summary.Users,
		"domains", g.Summary.Domains,
		"sessions", g.Summary.Sessions,
		"edges", g.Summary.Edges,
	)

	sinks, closers, err := buildSinks(ctx, runLogger, cfg, sinkNames)
	defer func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}()
	if err != nil {
		runLogger.Error("failed to prepare sinks", "error", err)
		return err
	}

	start := time.Now()
	publisher := service.NewBulkPublisher(sinks, cfg.Build.PublishWorkers, recorder)
	if err := publisher.Publish(ctx, g); err != nil {
		runLogger.Error("publish failed", "error", err)
		return err
	}
	runLogger.Info("graph published", "sinks", len(sinks), "duration", time.Since(start).String())

	renderTopEdges(g.Edges, opts.top)
	fmt.Fprintf(os.Stdout, "Wrote %d edges for %d users to %s (run %s)\n",
		g.Summary.Edges, g.Summary.Users, cfg.Artifacts.Dir, g.RunID)
	return nil
}

func applyOverrides(cfg *config.Config, opts buildOptions) {
	if opts.outDir != "" {
		cfg.Artifacts.Dir = opts.outDir
	}
	if opts.suffix != "" {
		cfg.Artifacts.Suffix = opts.suffix
	}
	if opts.workers > 0 {
		cfg.Build.Workers = opts.workers
	}
	if opts.indent {
		cfg.Artifacts.Indent = true
	}
}

func parseSinks(raw []string) ([]string, error) {
	var names []string
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !slices.Contains(knownSinks, name) {
			return nil, fmt.Errorf("unknown sink %q (want one of %s)", name, strings.Join(knownSinks, ", "))
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// buildSinks always includes the artifact files. The returned closers must run
// even when an error is returned.
func buildSinks(ctx context.Context, logger *slog.Logger, cfg config.Config, names []string) ([]service.GraphSink, []func(), error) {
	sinks := []service.GraphSink{
		file.New(cfg.Artifacts.Dir, cfg.Artifacts.Suffix, export.Options{Indent: cfg.Artifacts.Indent}),
	}
	var closers []func()

	for _, name := range names {
		switch name {
		case sinkNeo4j:
			client, err := connectGraph(ctx, cfg)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, func() {
				if err := client.Close(context.Background()); err != nil {
					logger.Warn("closing graph client failed", "error", err)
				}
			})
			logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
			sinks = append(sinks, repository.New(client, cfg.Graph.BatchSize))

		case sinkPostgres:
			db, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, func() { _ = db.Close() })
			pg := postgres.New(db)
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, closers, err
			}
			logger.Info("connected to postgres")
			sinks = append(sinks, pg)

		case sinkRedis:
			client, err := redis.NewClient(redis.Config{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, func() { _ = client.Close() })
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
			sinks = append(sinks, redis.New(client, cfg.Artifacts.Suffix, cfg.Redis.TTL))
		}
	}
	return sinks, closers, nil
}

func connectGraph(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return client, nil
}

func logCleanReport(logger *slog.Logger, report service.CleanReport) {
	args := []any{
		"read", report.Total,
		"kept", report.Kept,
		"repaired_end", report.RepairedEnd,
		"derived_time", report.DerivedTime,
	}
	for _, reason := range service.DropReasons {
		args = append(args, "dropped_"+string(reason), report.Dropped[reason])
	}
	logger.Info("sessions cleaned", args...)
}

func renderTopEdges(edges []domain.AggregatedEdge, limit int) {
	if limit <= 0 || len(edges) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Origin", "Target", "Users"})
	for _, edge := range edges[:min(limit, len(edges))] {
		t.AppendRow(table.Row{edge.ID, edge.Origin, edge.Target, edge.NumUsers})
	}
	t.Render()
}
