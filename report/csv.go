package report

import (
	"encoding/csv"
	"fmt"
	"os"

	"gaebench/samples"
)

// Row is one percentile of one latency column for one parameter set of one input file
type Row struct {
	Input      string  // Input the row was computed from, not part of the CSV output
	SourceType string  // Hosting tier of the input file
	Endpoint   string  // Request path of the input file
	Timestamp  string  // Time of the first request of the input file
	Operation  string  // Metric column, e.g. "get_time (ms)"
	Params     string  // Serialized parameter set used as filter
	Percentile float64 // Requested percentile in [0, 100]
	Value      float64 // Latency at that percentile in milliseconds
}

// Header returns the output header. The source type column keeps its historical name "GAE".
func Header(includeEndpoint, includeTimestamp bool) []string {
	header := []string{"GAE"}
	if includeEndpoint {
		header = append(header, "endpoint")
	}
	if includeTimestamp {
		header = append(header, "timestamp")
	}
	return append(header, "operation", "params", "percentile", "value")
}

func (r *Row) record(includeEndpoint, includeTimestamp bool) []string {
	record := []string{r.SourceType}
	if includeEndpoint {
		record = append(record, r.Endpoint)
	}
	if includeTimestamp {
		record = append(record, r.Timestamp)
	}
	return append(record,
		r.Operation,
		r.Params,
		samples.FormatFloat(r.Percentile),
		samples.FormatFloat(r.Value),
	)
}

// CSVExporter writes report rows to a temporary file next to the destination and
// only moves it into place on Commit, so an aborted run never leaves a report
// that looks complete.
type CSVExporter struct {
	file             *os.File
	writer           *csv.Writer
	path             string
	tmpPath          string
	batchSize        int
	rows             []Row
	includeEndpoint  bool
	includeTimestamp bool
}

func NewCSVExporter(path string, runID string, batchSize int, includeEndpoint, includeTimestamp bool) (*CSVExporter, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	tmpPath := fmt.Sprintf("%s.partial-%s", path, runID)
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	// Write CSV header
	writer := csv.NewWriter(file)
	err = writer.Write(Header(includeEndpoint, includeTimestamp))
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	return &CSVExporter{
		file:             file,
		writer:           writer,
		path:             path,
		tmpPath:          tmpPath,
		batchSize:        batchSize,
		rows:             make([]Row, 0, batchSize),
		includeEndpoint:  includeEndpoint,
		includeTimestamp: includeTimestamp,
	}, nil
}

func (e *CSVExporter) AddRow(row Row) error {
	e.rows = append(e.rows, row)

	if len(e.rows) >= e.batchSize {
		return e.flush()
	}
	return nil
}

func (e *CSVExporter) flush() error {
	for i := range e.rows {
		err := e.writer.Write(e.rows[i].record(e.includeEndpoint, e.includeTimestamp))
		if err != nil {
			return err
		}
	}
	e.writer.Flush()
	e.rows = e.rows[:0]
	return e.writer.Error()
}

// Commit flushes pending rows and moves the report to its destination
func (e *CSVExporter) Commit() error {
	if err := e.flush(); err != nil {
		e.Abort()
		return err
	}
	if err := e.file.Close(); err != nil {
		os.Remove(e.tmpPath)
		return err
	}
	if err := os.Rename(e.tmpPath, e.path); err != nil {
		os.Remove(e.tmpPath)
		return err
	}
	return nil
}

// Abort discards everything written so far
func (e *CSVExporter) Abort() error {
	e.file.Close()
	if err := os.Remove(e.tmpPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// TmpPath is where rows are staged until Commit
func (e *CSVExporter) TmpPath() string {
	return e.tmpPath
}
