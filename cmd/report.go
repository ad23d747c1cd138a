package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	cfgpkg "gaebench/config"
	"gaebench/logger"
	"gaebench/report"
	"gaebench/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

var reportFlags struct {
	bytes        []int
	params       []string
	columns      []string
	percentiles  []float64
	output       string
	endpointCol  bool
	timestampCol bool
	parquet      string
	prom         string
	etcd         []string
	logLevel     string
	logFile      string
}

var ReportCmd = &cobra.Command{
	Use:   "report [flags] <input>...",
	Short: "Compute latency percentiles",
	Long:  "Compute latency percentiles per parameter set and operation for every input file (local path or s3://bucket/key) and write them to a single CSV report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reportConfigFromFlags(cmd)
		if err != nil {
			return err
		}
		if len(args) == 0 && len(cfg.Inputs) == 0 {
			return fmt.Errorf("no input files given")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runReport(ctx, cfg, args)
	},
}

func init() {
	f := ReportCmd.Flags()
	f.IntSliceVarP(&reportFlags.bytes, "bytes", "b", nil, "Payload sizes, each selecting the parameter set {'bytes': N}")
	f.StringArrayVar(&reportFlags.params, "params", nil, "Serialized parameter set, repeatable; takes precedence over --bytes")
	f.StringSliceVar(&reportFlags.columns, "columns", nil, "Latency columns to summarize")
	f.Float64SliceVar(&reportFlags.percentiles, "percentiles", nil, "Percentiles to compute, each within [0, 100]")
	f.StringVarP(&reportFlags.output, "output", "o", "", "Report file")
	f.BoolVar(&reportFlags.endpointCol, "endpoint-col", false, "Add the endpoint column to the report")
	f.BoolVar(&reportFlags.timestampCol, "timestamp-col", false, "Add the timestamp column to the report")
	f.StringVar(&reportFlags.parquet, "parquet", "", "Also write the report rows to this Parquet file")
	f.StringVar(&reportFlags.prom, "prom-textfile", "", "Also write the report rows as a Prometheus textfile")
	f.StringSliceVar(&reportFlags.etcd, "etcd", nil, "Also publish the report rows to these etcd endpoints")
	f.StringVar(&reportFlags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&reportFlags.logFile, "log-file", "", "Also write JSON logs to this file")
}

// reportConfigFromFlags overrides the persisted configuration with the flags set on cmd
func reportConfigFromFlags(cmd *cobra.Command) (*cfgpkg.ReportConfig, error) {
	cfg := GConfig.reportConfig()
	f := cmd.Flags()

	if f.Changed("bytes") {
		cfg.Bytes = reportFlags.bytes
		cfg.ParamSets = nil
	}
	if f.Changed("params") {
		cfg.ParamSets = reportFlags.params
	}
	if f.Changed("columns") {
		cfg.Columns = reportFlags.columns
	}
	if f.Changed("percentiles") {
		cfg.Percentiles = reportFlags.percentiles
	}
	if f.Changed("output") {
		cfg.Output = reportFlags.output
	}
	if f.Changed("endpoint-col") {
		cfg.EndpointCol = reportFlags.endpointCol
	}
	if f.Changed("timestamp-col") {
		cfg.TimestampCol = reportFlags.timestampCol
	}
	if f.Changed("parquet") {
		cfg.ParquetFile = reportFlags.parquet
	}
	if f.Changed("prom-textfile") {
		cfg.PromTextfile = reportFlags.prom
	}
	if f.Changed("etcd") {
		cfg.EtcdEndpoints = reportFlags.etcd
	}
	if f.Changed("log-level") {
		cfg.LogLevel = reportFlags.logLevel
	}
	if f.Changed("log-file") {
		cfg.LogFile = reportFlags.logFile
	}

	if err := cfgpkg.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runReport(ctx context.Context, cfg *cfgpkg.ReportConfig, inputs []string) error {
	l, err := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer l.Close()

	runID := uuid.NewString()
	src := storage.NewSource(cfg.S3Options(), l.Logger)
	rows, err := report.Generate(ctx, cfg.ReportOptions(inputs, runID), src, l.Logger)
	if err != nil {
		l.Error("Report failed", zap.String("run_id", runID), zap.String("kind", errorKind(err)), zap.Error(err))
		return err
	}

	if cfg.ParquetFile != "" {
		if err := report.WriteParquet(cfg.ParquetFile, rows); err != nil {
			return fmt.Errorf("failed to write parquet report: %w", err)
		}
		l.Info("Parquet report written", zap.String("path", cfg.ParquetFile))
	}
	if cfg.PromTextfile != "" {
		if err := report.WritePromTextfile(cfg.PromTextfile, rows); err != nil {
			return fmt.Errorf("failed to write prometheus textfile: %w", err)
		}
		l.Info("Prometheus textfile written", zap.String("path", cfg.PromTextfile))
	}
	if len(cfg.EtcdEndpoints) > 0 {
		if err := publishEtcd(ctx, cfg, runID, rows, l.Logger); err != nil {
			l.Error("Publishing failed", zap.String("kind", errorKind(err)), zap.Error(err))
			return err
		}
	}
	return nil
}

func publishEtcd(ctx context.Context, cfg *cfgpkg.ReportConfig, runID string, rows []report.Row, log *zap.Logger) error {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpoints,
		DialTimeout: cfg.EtcdDialTimeout.Std(),
		Logger:      log.Named("etcd"),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to etcd: %w", err)
	}
	defer cli.Close()

	publisher := report.NewEtcdPublisher(cli, cfg.EtcdPrefix, cfg.EtcdTimeout.Std(), log)
	return publisher.Publish(ctx, runID, rows)
}
