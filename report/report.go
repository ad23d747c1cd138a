// Description: This package turns latency sample files into a long-format percentile report:
// one row per input file, parameter set, latency column and percentile.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gaebench/analysis"
	"gaebench/samples"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBatchSize = 1000

// Opener opens an input by name, e.g. a local path or an object URI
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Config enumerates everything a report run depends on
type Config struct {
	Inputs           []string  // Sample files, processed in order
	ParamSets        []string  // Serialized parameter sets to filter on
	Columns          []string  // Metric columns, e.g. "get_time (ms)"
	Percentiles      []float64 // Percentiles in [0, 100]
	Output           string    // Destination CSV
	IncludeEndpoint  bool      // Emit the "endpoint" column
	IncludeTimestamp bool      // Emit the "timestamp" column
	RunID            string    // Identifies the run in temporary files and published keys, generated when empty
}

func (c *Config) Validate() error {
	switch {
	case len(c.Inputs) == 0:
		return errors.New("no input files")
	case len(c.ParamSets) == 0:
		return errors.New("no parameter sets")
	case len(c.Columns) == 0:
		return errors.New("no metric columns")
	case len(c.Percentiles) == 0:
		return errors.New("no percentiles")
	case c.Output == "":
		return errors.New("no output path")
	}
	for _, p := range c.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("%w: got %v", analysis.ErrPercentileRange, p)
		}
	}

	// every row must be unique, the sinks key rows by these values
	if in, ok := firstDuplicate(c.Inputs); ok {
		return fmt.Errorf("duplicate input %s", in)
	}
	if params, ok := firstDuplicate(c.ParamSets); ok {
		return fmt.Errorf("duplicate parameter set %s", params)
	}
	if col, ok := firstDuplicate(c.Columns); ok {
		return fmt.Errorf("duplicate column %q", col)
	}
	if p, ok := firstDuplicate(c.Percentiles); ok {
		return fmt.Errorf("duplicate percentile %v", p)
	}
	return nil
}

func firstDuplicate[T comparable](values []T) (T, bool) {
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v, true
		}
		seen[v] = struct{}{}
	}
	var zero T
	return zero, false
}

// Generate computes the report described by cfg and writes it to cfg.Output.
// The output is only replaced when every combination succeeded; the first
// failure aborts the run and leaves cfg.Output untouched.
func Generate(ctx context.Context, cfg Config, src Opener, log *zap.Logger) (rows []Row, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	log = log.With(zap.String("run_id", cfg.RunID))

	exporter, err := NewCSVExporter(cfg.Output, cfg.RunID, defaultBatchSize, cfg.IncludeEndpoint, cfg.IncludeTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if err != nil {
			if abortErr := exporter.Abort(); abortErr != nil {
				log.Warn("Failed to remove partial report", zap.String("path", exporter.TmpPath()), zap.Error(abortErr))
			}
		}
	}()

	for _, input := range cfg.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := load(ctx, src, input)
		if err != nil {
			return nil, err
		}
		log.Info("Loaded samples",
			zap.String("file", input),
			zap.String("type", table.SourceType()),
			zap.Int("samples", len(table.Samples)),
		)

		fileRows, err := summarize(ctx, table, &cfg, log)
		if err != nil {
			return nil, err
		}
		for _, row := range fileRows {
			if err := exporter.AddRow(row); err != nil {
				return nil, fmt.Errorf("failed to write report row: %w", err)
			}
		}
		rows = append(rows, fileRows...)
	}

	if err := exporter.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finalize report %s: %w", cfg.Output, err)
	}
	log.Info("Report written", zap.String("path", cfg.Output), zap.Int("rows", len(rows)))
	return rows, nil
}

func load(ctx context.Context, src Opener, input string) (*samples.Table, error) {
	rc, err := src.Open(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var malformed *samples.MalformedInputError
		if errors.As(err, &malformed) {
			return nil, err
		}
		return nil, &samples.MalformedInputError{File: input, Reason: "cannot open file", Err: err}
	}
	defer rc.Close()

	table, err := samples.Read(input, rc)
	if err != nil {
		return nil, err
	}
	if !table.Has(samples.ColType) {
		return nil, &samples.MissingColumnError{File: input, Column: samples.ColType}
	}
	return table, nil
}

// summarize computes the rows of one file in parameter set, column, percentile order
func summarize(ctx context.Context, table *samples.Table, cfg *Config, log *zap.Logger) ([]Row, error) {
	rows := make([]Row, 0, len(cfg.ParamSets)*len(cfg.Columns)*len(cfg.Percentiles))
	for _, params := range cfg.ParamSets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, col := range cfg.Columns {
			values, err := analysis.Extract(table, params, col)
			if err != nil {
				return nil, fmt.Errorf("params %s: %w", params, err)
			}
			log.Debug("Extracted column",
				zap.String("file", table.Name),
				zap.String("params", params),
				zap.String("column", col),
				zap.Int("samples", len(values)),
			)

			res, err := analysis.Percentiles(values, cfg.Percentiles)
			if errors.Is(err, analysis.ErrEmptySample) {
				return nil, &analysis.EmptySampleError{File: table.Name, Params: params, Column: col}
			}
			if err != nil {
				return nil, fmt.Errorf("%s, params %s, column %q: %w", table.Name, params, col, err)
			}

			for _, p := range cfg.Percentiles {
				rows = append(rows, Row{
					Input:      table.Name,
					SourceType: table.SourceType(),
					Endpoint:   table.Endpoint(),
					Timestamp:  table.Timestamp(),
					Operation:  col,
					Params:     params,
					Percentile: p,
					Value:      res[p],
				})
			}
		}
	}
	return rows, nil
}
