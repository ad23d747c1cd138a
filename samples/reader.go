package samples

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table is the in-memory content of one sample file
type Table struct {
	Name    string         // File name or URI the table was read from
	Header  map[string]int // Column name to index
	Samples []Sample       // Rows in file order
}

// ParamSetCount is the number of samples recorded under one parameter set
type ParamSetCount struct {
	Params string
	Count  int
}

// ReadFile reads the sample file at path
func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &MalformedInputError{File: path, Reason: "cannot open file", Err: err}
	}
	defer file.Close()
	return Read(path, file)
}

// Read parses a sample file from r in a single pass. name is only used for error reporting.
// All rows must have the same width as the header, and all rows must share the same
// source type and endpoint.
func Read(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &MalformedInputError{File: name, Reason: "empty file"}
	}
	if err != nil {
		return nil, csvError(name, err)
	}

	table := &Table{Name: name, Header: make(map[string]int, len(header))}
	recognized := 0
	for i, col := range header {
		col = strings.TrimSpace(col)
		if _, dup := table.Header[col]; dup {
			return nil, &MalformedInputError{File: name, Line: 1, Reason: fmt.Sprintf("duplicate column %q", col)}
		}
		table.Header[col] = i
		for _, known := range Header {
			if col == known {
				recognized++
			}
		}
	}
	if recognized == 0 {
		return nil, &MalformedInputError{File: name, Line: 1, Reason: "no header row"}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := reader.FieldPos(0)

		sample, err := table.parse(record)
		if err != nil {
			return nil, &MalformedInputError{File: name, Line: line, Reason: "invalid row", Err: err}
		}

		if len(table.Samples) > 0 {
			first := &table.Samples[0]
			if sample.SourceType != first.SourceType {
				return nil, &MalformedInputError{
					File:   name,
					Line:   line,
					Reason: fmt.Sprintf("mixed source types %q and %q", first.SourceType, sample.SourceType),
				}
			}
			if sample.Endpoint != first.Endpoint {
				return nil, &MalformedInputError{
					File:   name,
					Line:   line,
					Reason: fmt.Sprintf("mixed endpoints %q and %q", first.Endpoint, sample.Endpoint),
				}
			}
		}
		table.Samples = append(table.Samples, sample)
	}

	if len(table.Samples) == 0 {
		return nil, &MalformedInputError{File: name, Reason: "no data rows"}
	}
	return table, nil
}

func csvError(name string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		reason := "invalid csv"
		if errors.Is(parseErr.Err, csv.ErrFieldCount) {
			reason = "row width differs from header"
		}
		return &MalformedInputError{File: name, Line: parseErr.Line, Reason: reason, Err: parseErr.Err}
	}
	return &MalformedInputError{File: name, Reason: "cannot read file", Err: err}
}

func (t *Table) field(record []string, col string) (string, bool) {
	idx, ok := t.Header[col]
	if !ok {
		return "", false
	}
	return record[idx], true
}

func (t *Table) parse(record []string) (Sample, error) {
	var s Sample
	s.Timestamp, _ = t.field(record, ColTimestamp)
	s.SourceType, _ = t.field(record, ColType)
	s.Endpoint, _ = t.field(record, ColEndpoint)
	s.Params, _ = t.field(record, ColParams)

	if v, ok := t.field(record, ColCorrect); ok {
		correct, err := parseBool(v)
		if err != nil {
			return s, fmt.Errorf("column %q: %w", ColCorrect, err)
		}
		s.Correct = correct
	}

	metrics := []struct {
		col string
		dst *float64
	}{
		{ColDelTime, &s.DelTime},
		{ColGetTime, &s.GetTime},
		{ColSetTime, &s.SetTime},
	}
	for _, m := range metrics {
		v, ok := t.field(record, m.col)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return s, fmt.Errorf("column %q: %w", m.col, err)
		}
		*m.dst = f
	}
	return s, nil
}

// Has reports whether the file header contains col
func (t *Table) Has(col string) bool {
	_, ok := t.Header[col]
	return ok
}

// SourceType is the hosting tier shared by every sample of the file
func (t *Table) SourceType() string {
	return t.Samples[0].SourceType
}

// Endpoint is the request path shared by every sample of the file
func (t *Table) Endpoint() string {
	return t.Samples[0].Endpoint
}

// Timestamp is the time of the first request of the file
func (t *Table) Timestamp() string {
	return t.Samples[0].Timestamp
}

// ParamSets lists the distinct parameter sets in order of first appearance
func (t *Table) ParamSets() []ParamSetCount {
	index := make(map[string]int)
	var counts []ParamSetCount
	for _, s := range t.Samples {
		i, ok := index[s.Params]
		if !ok {
			i = len(counts)
			index[s.Params] = i
			counts = append(counts, ParamSetCount{Params: s.Params})
		}
		counts[i].Count++
	}
	return counts
}
