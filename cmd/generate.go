package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"time"

	"gaebench/constants"
	"gaebench/generator"
	"gaebench/samples"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var generateFlags struct {
	seed          int64
	sourceType    string
	endpoint      string
	bytes         []int
	params        []string
	samplesPerSet int
	start         string
	interval      time.Duration
	failureRate   float64
	output        string
}

var GenerateCmd = &cobra.Command{
	Use:   "generate [flags]",
	Short: "Generate a synthetic sample file",
	Long:  "Generate a deterministic sample file in the layout the benchmark driver writes, to try out reports without a deployment",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log.SetPrefix("[GENERATE] ")
		opts, err := generatorOptions()
		if err != nil {
			log.Fatalf("Invalid options: %v", err)
		}
		n, err := generateFile(generateFlags.seed, opts, generateFlags.output)
		if err != nil {
			log.Fatalf("Failed to generate samples: %v", err)
		}
		log.Printf("Wrote %d samples (%s) to %s\n", opts.SamplesPerSet*len(opts.ParamSets), humanize.Bytes(uint64(n)), generateFlags.output)
	},
}

func init() {
	f := GenerateCmd.Flags()
	f.Int64Var(&generateFlags.seed, "seed", constants.DEFAULT_SEED, "Random seed, the same seed yields the same file")
	f.StringVar(&generateFlags.sourceType, "type", constants.DEFAULT_SOURCE_TYPE, "Hosting tier written to the type column (std or flex)")
	f.StringVar(&generateFlags.endpoint, "endpoint", constants.DEFAULT_ENDPOINT, "Endpoint written to the request_url column")
	f.IntSliceVarP(&generateFlags.bytes, "bytes", "b", []int{10, 1000, 100000}, "Payload sizes, one parameter set each")
	f.StringArrayVar(&generateFlags.params, "params", nil, "Serialized parameter set, repeatable; takes precedence over --bytes")
	f.IntVarP(&generateFlags.samplesPerSet, "samples", "n", constants.DEFAULT_SAMPLES_PER_SET, "Samples per parameter set")
	f.StringVar(&generateFlags.start, "start", "2017-06-16 11:56:08.581900", "Timestamp of the first sample")
	f.DurationVar(&generateFlags.interval, "interval", constants.DEFAULT_SAMPLE_INTERVAL, "Time between samples")
	f.Float64Var(&generateFlags.failureRate, "failure-rate", constants.DEFAULT_FAILURE_RATE, "Fraction of samples marked incorrect")
	f.StringVarP(&generateFlags.output, "output", "o", "", "Sample file to write")
	GenerateCmd.MarkFlagRequired("output")
}

func generatorOptions() (generator.Options, error) {
	start, err := time.Parse(generator.TimestampLayout, generateFlags.start)
	if err != nil {
		return generator.Options{}, fmt.Errorf("invalid start timestamp: %w", err)
	}
	paramSets := generateFlags.params
	if len(paramSets) == 0 {
		for _, n := range generateFlags.bytes {
			paramSets = append(paramSets, samples.BytesParams(n))
		}
	}
	return generator.Options{
		SourceType:    generateFlags.sourceType,
		Endpoint:      generateFlags.endpoint,
		ParamSets:     paramSets,
		SamplesPerSet: generateFlags.samplesPerSet,
		Start:         start,
		Interval:      generateFlags.interval,
		FailureRate:   generateFlags.failureRate,
	}, nil
}

// generateFile writes the generated samples to path and returns the file size
func generateFile(seed int64, opts generator.Options, path string) (int64, error) {
	data, err := generator.NewGenerator(seed).GenerateSamples(opts)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := samples.WriteCSV(w, data); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), f.Close()
}
