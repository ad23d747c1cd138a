// Description: This package generates synthetic sample files with the same layout the request
// driver produces, for dry runs of the report pipeline. Output is fully determined by the seed.
package generator

import (
	"errors"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"gaebench/samples"
)

// TimestampLayout matches the driver's timestamps, e.g. 2017-06-16 11:56:20.191473
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Median latencies of a 10 byte payload in milliseconds
const (
	baseGetMs = 1.0
	baseSetMs = 1.6
	baseDelMs = 1.2
)

// Spread of the log-normal latency distribution
const sigma = 0.35

var bytesParam = regexp.MustCompile(`'bytes':\s*(\d+)`)

// Options describes one synthetic sample file
type Options struct {
	SourceType    string        // Hosting tier written to the "type" column
	Endpoint      string        // Request path written to the "request_url" column
	ParamSets     []string      // Serialized parameter sets, sampled in order
	SamplesPerSet int           // Rows per parameter set
	Start         time.Time     // Timestamp of the first row
	Interval      time.Duration // Time between consecutive rows
	FailureRate   float64       // Fraction of rows whose round trip is not correct
}

type Generator struct {
	rg   *rand.Rand
	seed int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rg:   rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

func (g *Generator) NewRand(id int) *rand.Rand {
	// Create unique but deterministic seed for each parameter set
	uniqueSeed := g.seed + int64(id)
	return rand.New(rand.NewSource(uniqueSeed))
}

// latency draws a log-normal latency around median
func latency(rg *rand.Rand, median float64) float64 {
	v := median * math.Exp(sigma*rg.NormFloat64())
	// the driver logs microsecond resolution
	return math.Round(v*1000) / 1000
}

// payloadFactor scales latencies with the payload size of a parameter set
func payloadFactor(params string) float64 {
	m := bytesParam.FindStringSubmatch(params)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 10 {
		return 1
	}
	return 1 + math.Log10(float64(n)/10)
}

// GenerateSamples returns opts.SamplesPerSet rows per parameter set, parameter sets in order
func (g *Generator) GenerateSamples(opts Options) ([]samples.Sample, error) {
	if opts.SourceType == "" {
		return nil, errors.New("source type is required")
	}
	if len(opts.ParamSets) == 0 {
		return nil, errors.New("at least one parameter set is required")
	}
	if opts.SamplesPerSet <= 0 {
		return nil, errors.New("samples per parameter set must be positive")
	}
	if opts.FailureRate < 0 || opts.FailureRate > 1 {
		return nil, errors.New("failure rate must be within [0, 1]")
	}

	result := make([]samples.Sample, 0, len(opts.ParamSets)*opts.SamplesPerSet)
	ts := opts.Start
	for i, params := range opts.ParamSets {
		// per parameter set random generator
		rg := g.NewRand(i)
		factor := payloadFactor(params)
		for n := 0; n < opts.SamplesPerSet; n++ {
			result = append(result, samples.Sample{
				Timestamp:  ts.Format(TimestampLayout),
				SourceType: opts.SourceType,
				Endpoint:   opts.Endpoint,
				Params:     params,
				Correct:    rg.Float64() >= opts.FailureRate,
				DelTime:    latency(rg, baseDelMs*factor),
				GetTime:    latency(rg, baseGetMs*factor),
				SetTime:    latency(rg, baseSetMs*factor),
			})
			ts = ts.Add(opts.Interval + time.Duration(g.rg.Int63n(int64(time.Millisecond))))
		}
	}
	return result, nil
}
