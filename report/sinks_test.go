package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gaebench/samples"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func sampleRows() []Row {
	return []Row{
		{Input: "data/std.csv", SourceType: "std", Endpoint: "profile_memcache", Timestamp: "t0", Operation: samples.ColGetTime, Params: samples.BytesParams(10), Percentile: 50, Value: 10},
		{Input: "data/std.csv", SourceType: "std", Endpoint: "profile_memcache", Timestamp: "t0", Operation: samples.ColGetTime, Params: samples.BytesParams(10), Percentile: 99, Value: 14.9},
		{Input: "data/flex.csv", SourceType: "flex", Endpoint: "profile_memcache", Timestamp: "t1", Operation: samples.ColSetTime, Params: samples.BytesParams(1000), Percentile: 50, Value: 42.5},
	}
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "percentiles.parquet")
	rows := sampleRows()
	require.NoError(t, WriteParquet(path, rows))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(parquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	require.Equal(t, len(rows), num)

	got := make([]parquetRow, num)
	require.NoError(t, pr.Read(&got))
	for i := range rows {
		assert.Equal(t, toParquetRow(&rows[i]), got[i])
	}
}

func TestPrometheusExporter(t *testing.T) {
	rows := sampleRows()
	exporter := NewPrometheusExporter()
	exporter.Record(rows)

	assert.Equal(t, 3, testutil.CollectAndCount(exporter.percentileGauge))
	assert.Equal(t, 14.9, testutil.ToFloat64(exporter.percentileGauge.WithLabelValues(
		"std", "profile_memcache", "data/std.csv", samples.ColGetTime, samples.BytesParams(10), "99.0")))
	assert.Equal(t, 3.0, testutil.ToFloat64(exporter.rowsGauge))

	path := filepath.Join(t.TempDir(), "gaebench.prom")
	require.NoError(t, WritePromTextfile(path, rows))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# TYPE gaebench_latency_percentile_ms gauge")
	assert.Contains(t, string(content), `percentile="50.0"`)
	assert.Contains(t, string(content), "gaebench_report_rows 3")
}

type fakeKV struct {
	puts    map[string]string
	order   []string
	failAt  int
	failErr error
}

func (f *fakeKV) Put(ctx context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("put without deadline")
	}
	if f.failErr != nil && len(f.order) == f.failAt {
		return nil, f.failErr
	}
	if f.puts == nil {
		f.puts = make(map[string]string)
	}
	f.puts[key] = val
	f.order = append(f.order, key)
	return &clientv3.PutResponse{}, nil
}

func TestEtcdPublisher(t *testing.T) {
	kv := &fakeKV{}
	rows := sampleRows()
	publisher := NewEtcdPublisher(kv, "gaebench/reports", time.Second, nil)

	require.NoError(t, publisher.Publish(context.Background(), "run-1", rows))
	require.Len(t, kv.order, len(rows))

	key := RowKey("gaebench/reports", "run-1", &rows[0])
	assert.Equal(t, "/gaebench/reports/run-1/data%2Fstd.csv/std/get_time%20%28ms%29/%7B%27bytes%27:%2010%7D/p50.0", key)
	assert.Equal(t, key, kv.order[0])

	var stored etcdRow
	require.NoError(t, json.Unmarshal([]byte(kv.puts[key]), &stored))
	assert.Equal(t, "std", stored.GAE)
	assert.Equal(t, 10.0, stored.Value)
	assert.Equal(t, samples.BytesParams(10), stored.Params)

	for _, k := range kv.order {
		assert.True(t, strings.HasPrefix(k, "/gaebench/reports/run-1/"))
	}
}

func TestSinksKeepRowsFromInputsWithSameName(t *testing.T) {
	var rows []Row
	for _, input := range []string{"day1/std.csv", "day2/std.csv"} {
		for _, sourceType := range []string{"std", "flex"} {
			rows = append(rows, Row{Input: input, SourceType: sourceType, Endpoint: "profile_memcache",
				Operation: samples.ColGetTime, Params: samples.BytesParams(10), Percentile: 50, Value: 10})
		}
	}

	kv := &fakeKV{}
	require.NoError(t, NewEtcdPublisher(kv, "gaebench", time.Second, nil).Publish(context.Background(), "run-3", rows))
	assert.Len(t, kv.puts, len(rows))

	exporter := NewPrometheusExporter()
	exporter.Record(rows)
	assert.Equal(t, len(rows), testutil.CollectAndCount(exporter.percentileGauge))
}

func TestEtcdPublisherStopsOnError(t *testing.T) {
	kv := &fakeKV{failAt: 1, failErr: status.Error(codes.Unavailable, "no leader")}
	publisher := NewEtcdPublisher(kv, "gaebench", time.Second, nil)

	err := publisher.Publish(context.Background(), "run-2", sampleRows())
	var publishErr *PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, int(codes.Unavailable), publishErr.StatusCode)
	assert.Equal(t, "no leader", publishErr.StatusText)
	assert.Len(t, kv.order, 1)
}

func TestErrInfo(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"canceled", context.Canceled, -1},
		{"deadline", context.DeadlineExceeded, -2},
		{"etcd error", rpctypes.ErrEmptyKey, int(codes.InvalidArgument)},
		{"grpc status", status.Error(codes.PermissionDenied, "denied"), int(codes.PermissionDenied)},
		{"unknown", errors.New("connection refused"), -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, text := errInfo(tt.err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, text)
		})
	}
}
