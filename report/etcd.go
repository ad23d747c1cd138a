package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"

	"gaebench/samples"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

// KVPutter is the part of the etcd KV API the publisher needs; *clientv3.Client implements it
type KVPutter interface {
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
}

// etcdRow is the value stored for each report row
type etcdRow struct {
	Input      string  `json:"input"`
	GAE        string  `json:"gae"`
	Endpoint   string  `json:"endpoint"`
	Timestamp  string  `json:"timestamp"`
	Operation  string  `json:"operation"`
	Params     string  `json:"params"`
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// PublishError is returned when a row could not be stored
type PublishError struct {
	Key        string
	StatusCode int    // gRPC code, or negative for client-side conditions
	StatusText string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish %s (status %d: %s)", e.Key, e.StatusCode, e.StatusText)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// EtcdPublisher stores report rows in etcd so that runs from several machines can be collected in one place
type EtcdPublisher struct {
	kv      KVPutter
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

func NewEtcdPublisher(kv KVPutter, prefix string, timeout time.Duration, log *zap.Logger) *EtcdPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EtcdPublisher{
		kv:      kv,
		prefix:  prefix,
		timeout: timeout,
		log:     log,
	}
}

// RowKey is <prefix>/<run>/<input>/<gae>/<operation>/<params>/p<percentile>. Each segment is
// path-escaped, so the full input path stays one segment and inputs sharing a base name do not collide.
func RowKey(prefix, runID string, row *Row) string {
	return path.Join(
		"/",
		prefix,
		url.PathEscape(runID),
		url.PathEscape(row.Input),
		url.PathEscape(row.SourceType),
		url.PathEscape(row.Operation),
		url.PathEscape(row.Params),
		"p"+samples.FormatFloat(row.Percentile),
	)
}

// Publish puts every row under the run's key prefix. It stops at the first failed put.
func (p *EtcdPublisher) Publish(ctx context.Context, runID string, rows []Row) error {
	for i := range rows {
		row := &rows[i]
		key := RowKey(p.prefix, runID, row)
		val, err := json.Marshal(etcdRow{
			Input:      row.Input,
			GAE:        row.SourceType,
			Endpoint:   row.Endpoint,
			Timestamp:  row.Timestamp,
			Operation:  row.Operation,
			Params:     row.Params,
			Percentile: row.Percentile,
			Value:      row.Value,
		})
		if err != nil {
			return err
		}

		putCtx, cancel := context.WithTimeout(ctx, p.timeout)
		_, err = p.kv.Put(putCtx, key, string(val))
		cancel()
		if err != nil {
			code, text := errInfo(err)
			p.log.Error("Failed to publish row",
				zap.String("key", key),
				zap.Int("status_code", code),
				zap.String("status_text", text),
			)
			return &PublishError{Key: key, StatusCode: code, StatusText: text, Err: err}
		}
	}
	p.log.Info("Published report", zap.String("prefix", path.Join("/", p.prefix, runID)), zap.Int("rows", len(rows)))
	return nil
}

// errInfo maps an etcd client error to a status code and text
func errInfo(err error) (int, string) {
	var etcdErr rpctypes.EtcdError
	switch {
	case errors.Is(err, context.Canceled):
		return -1, "Context canceled by another goroutine"
	case errors.Is(err, context.DeadlineExceeded):
		return -2, "Request deadline exceeded"
	case errors.As(err, &etcdErr):
		return int(etcdErr.Code()), etcdErr.Error()
	case clientv3.IsConnCanceled(err):
		return -3, "gRPC client connection closed"
	}
	if st, ok := status.FromError(err); ok {
		return int(st.Code()), st.Message()
	}
	// bad cluster endpoints, which are not etcd servers
	return -4, err.Error()
}
