// Description: This package reads the latency sample files written by the request driver.
// Each row holds the timings of one put/get/delete round trip against a hosted data service.
package samples

import (
	"fmt"
	"strconv"
	"strings"
)

// Recognized header columns of a sample file
const (
	ColTimestamp = "timestamp"
	ColType      = "type"
	ColEndpoint  = "request_url"
	ColParams    = "params"
	ColCorrect   = "correct"
	ColDelTime   = "del_time (ms)"
	ColGetTime   = "get_time (ms)"
	ColSetTime   = "set_time (ms)"
)

// Header is the column order the request driver writes
var Header = []string{
	ColTimestamp,
	ColType,
	ColEndpoint,
	ColParams,
	ColCorrect,
	ColDelTime,
	ColGetTime,
	ColSetTime,
}

// MetricColumns are the columns holding durations
var MetricColumns = []string{ColGetTime, ColSetTime, ColDelTime}

// Sample is one latency measurement
type Sample struct {
	Timestamp  string  // Time the request was issued, kept verbatim
	SourceType string  // Hosting tier that served the request ("std" or "flex")
	Endpoint   string  // Request path that was profiled
	Params     string  // Serialized parameter set, e.g. {'bytes': 10}
	Correct    bool    // Value survived the put/get round trip
	DelTime    float64 // Delete latency in milliseconds
	GetTime    float64 // Get latency in milliseconds
	SetTime    float64 // Put/set latency in milliseconds
}

// IsMetricColumn reports whether col names one of the duration columns
func IsMetricColumn(col string) bool {
	for _, c := range MetricColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Metric returns the value of the given metric column
func (s *Sample) Metric(col string) (float64, bool) {
	switch col {
	case ColDelTime:
		return s.DelTime, true
	case ColGetTime:
		return s.GetTime, true
	case ColSetTime:
		return s.SetTime, true
	}
	return 0, false
}

// record renders the sample in Header order
func (s *Sample) record() []string {
	return []string{
		s.Timestamp,
		s.SourceType,
		s.Endpoint,
		s.Params,
		formatBool(s.Correct),
		FormatFloat(s.DelTime),
		FormatFloat(s.GetTime),
		FormatFloat(s.SetTime),
	}
}

// Param is one key of a parameter set
type Param struct {
	Key   string
	Value int
}

// FormatParams serializes a parameter set the way the request driver logs it,
// keeping the given key order: {'bytes': 100, 'values': 10}
func FormatParams(params ...Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("'%s': %d", p.Key, p.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// BytesParams is the parameter set of a plain payload-size run
func BytesParams(n int) string {
	return FormatParams(Param{Key: "bytes", Value: n})
}

// FormatFloat prints a float in its shortest form, always with a decimal point
// for integral values (10 -> "10.0"), matching how the analysis scripts printed numbers.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "True", "true", "1":
		return true, nil
	case "False", "false", "0", "None", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
