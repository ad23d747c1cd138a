package report

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetRow is the on-disk schema of a report row
type parquetRow struct {
	GAE        string  `parquet:"name=gae, type=BYTE_ARRAY, convertedtype=UTF8"`
	Endpoint   string  `parquet:"name=endpoint, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp  string  `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8"`
	Operation  string  `parquet:"name=operation, type=BYTE_ARRAY, convertedtype=UTF8"`
	Params     string  `parquet:"name=params, type=BYTE_ARRAY, convertedtype=UTF8"`
	Percentile float64 `parquet:"name=percentile, type=DOUBLE"`
	Value      float64 `parquet:"name=value, type=DOUBLE"`
}

func toParquetRow(r *Row) parquetRow {
	return parquetRow{
		GAE:        r.SourceType,
		Endpoint:   r.Endpoint,
		Timestamp:  r.Timestamp,
		Operation:  r.Operation,
		Params:     r.Params,
		Percentile: r.Percentile,
		Value:      r.Value,
	}
}

// ParquetWriter handles writing report rows to a Parquet file
type ParquetWriter struct {
	writer *writer.ParquetWriter
	file   source.ParquetFile
}

// NewParquetWriter creates a Parquet writer for path, truncating any existing file
func NewParquetWriter(path string) (*ParquetWriter, error) {
	file, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}

	pw, err := writer.NewParquetWriter(file, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	return &ParquetWriter{
		writer: pw,
		file:   file,
	}, nil
}

// WriteRow appends one row
func (pw *ParquetWriter) WriteRow(row Row) error {
	if err := pw.writer.Write(toParquetRow(&row)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Close flushes the footer and closes the file
func (pw *ParquetWriter) Close() error {
	if err := pw.writer.WriteStop(); err != nil {
		pw.file.Close()
		return fmt.Errorf("failed to stop parquet writer: %w", err)
	}

	if err := pw.file.Close(); err != nil {
		return fmt.Errorf("failed to close parquet file: %w", err)
	}

	return nil
}

// WriteParquet writes rows to path. A failed write removes the file.
func WriteParquet(path string, rows []Row) error {
	pw, err := NewParquetWriter(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := pw.WriteRow(row); err != nil {
			pw.Close()
			os.Remove(path)
			return err
		}
	}
	if err := pw.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
