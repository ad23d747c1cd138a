package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gaebench/analysis"
	cfgpkg "gaebench/config"
	"gaebench/generator"
	"gaebench/report"
	"gaebench/samples"
	"gaebench/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		check func(t *testing.T, cfg *cfgpkg.ReportConfig)
	}{
		{"string", "output", "out/report.csv", func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.Equal(t, "out/report.csv", cfg.Output)
		}},
		{"bool", "endpoint_col", "true", func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.True(t, cfg.EndpointCol)
		}},
		{"int list", "bytes", "10, 1000", func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.Equal(t, []int{10, 1000}, cfg.Bytes)
		}},
		{"float list", "percentiles", "50,99.9", func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.Equal(t, []float64{50, 99.9}, cfg.Percentiles)
		}},
		{"json list", "param_sets", `["{'bytes': 10, 'entities': 5}"]`, func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.Equal(t, []string{"{'bytes': 10, 'entities': 5}"}, cfg.ParamSets)
		}},
		{"empty list", "etcd_endpoints", "", func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.Empty(t, cfg.EtcdEndpoints)
		}},
		{"duration", "etcd_timeout", "750ms", func(t *testing.T, cfg *cfgpkg.ReportConfig) {
			assert.Equal(t, 750*time.Millisecond, cfg.EtcdTimeout.Std())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cfgpkg.GetDefaultConfig()
			require.NoError(t, setField(cfg, tt.field, tt.value))
			tt.check(t, cfg)
			assert.NoError(t, cfgpkg.ValidateConfig(cfg))
		})
	}
}

func TestSetFieldErrors(t *testing.T) {
	cfg := cfgpkg.GetDefaultConfig()
	assert.ErrorContains(t, setField(cfg, "seed", "1"), "not found")
	assert.Error(t, setField(cfg, "bytes", "10,ten"))
	assert.Error(t, setField(cfg, "endpoint_col", "maybe"))
	assert.Error(t, setField(cfg, "etcd_timeout", "soon"))
	assert.Error(t, setField(cfg, "percentiles", "[50,"))
}

func TestListFields(t *testing.T) {
	var buf bytes.Buffer
	listFields(&buf, cfgpkg.GetDefaultConfig())
	out := buf.String()

	assert.Contains(t, out, "FIELD")
	assert.Regexp(t, `percentiles\s+\[\]float64\s+true\s+10,50,90,95,99`, out)
	assert.Regexp(t, `etcd_endpoints\s+\[\]string\s+false\s+\[\]`, out)
	assert.Regexp(t, `etcd_timeout\s+config.Duration\s+true\s+2s`, out)

	v, _, ok := fieldByName(cfgpkg.GetDefaultConfig(), "bytes")
	require.True(t, ok)
	assert.Equal(t, "10", formatValue(v))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&samples.MalformedInputError{File: "a.csv", Reason: "no data rows"}, "malformed_input"},
		{fmt.Errorf("params x: %w", &samples.MissingColumnError{File: "a.csv", Column: "get_time (ms)"}), "missing_column"},
		{&analysis.EmptySampleError{File: "a.csv", Params: "x", Column: "get_time (ms)"}, "empty_sample"},
		{fmt.Errorf("invalid: %w", analysis.ErrPercentileRange), "invalid_percentile"},
		{&report.PublishError{Key: "/k", Err: context.DeadlineExceeded}, "publish"},
		{errors.New("disk full"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err), tt.err.Error())
	}
}

func writeSamples(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "std.csv")
	_, err := generateFile(42, generator.Options{
		SourceType:    "std",
		Endpoint:      "profile_memcache",
		ParamSets:     []string{samples.BytesParams(10), samples.BytesParams(1000)},
		SamplesPerSet: 50,
		Start:         time.Date(2017, 6, 16, 11, 56, 8, 0, time.UTC),
		Interval:      time.Second,
	}, path)
	require.NoError(t, err)
	return path
}

func TestInspect(t *testing.T) {
	path := writeSamples(t, t.TempDir())

	var buf bytes.Buffer
	require.NoError(t, inspect(context.Background(), storage.NewSource(storage.S3Options{}, nil), path, &buf))
	out := buf.String()
	assert.Regexp(t, `TYPE\s+std`, out)
	assert.Regexp(t, `ENDPOINT\s+profile_memcache`, out)
	assert.Regexp(t, `SAMPLES\s+100`, out)
	assert.Regexp(t, `50\s+\{'bytes': 10\}`, out)
	assert.Regexp(t, `50\s+\{'bytes': 1000\}`, out)
}

func TestRunReport(t *testing.T) {
	dir := t.TempDir()
	input := writeSamples(t, dir)

	cfg := cfgpkg.GetDefaultConfig()
	cfg.Bytes = []int{10, 1000}
	cfg.Output = filepath.Join(dir, "percentiles.csv")
	cfg.ParquetFile = filepath.Join(dir, "percentiles.parquet")
	cfg.PromTextfile = filepath.Join(dir, "percentiles.prom")
	cfg.LogFile = filepath.Join(dir, "run.log")
	require.NoError(t, cfgpkg.ValidateConfig(cfg))

	require.NoError(t, runReport(context.Background(), cfg, []string{input}))

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header + 2 param sets x 3 columns x 5 percentiles
	assert.Len(t, lines, 31)
	assert.Equal(t, "GAE,operation,params,percentile,value", lines[0])

	for _, path := range []string{cfg.ParquetFile, cfg.PromTextfile, cfg.LogFile} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.NotZero(t, info.Size(), path)
	}
}

func TestRunReportMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := cfgpkg.GetDefaultConfig()
	cfg.Output = filepath.Join(dir, "percentiles.csv")

	err := runReport(context.Background(), cfg, []string{filepath.Join(dir, "missing.csv")})
	var malformed *samples.MalformedInputError
	assert.ErrorAs(t, err, &malformed)

	_, statErr := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(statErr))
}
