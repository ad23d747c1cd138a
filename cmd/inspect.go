package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gaebench/samples"
	"gaebench/storage"

	"github.com/spf13/cobra"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "Describe a sample file",
	Long:  "Print the hosting tier, endpoint and the distinct parameter sets with their sample counts, to pick values for 'gaebench report --params'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GConfig.reportConfig()
		src := storage.NewSource(cfg.S3Options(), nil)
		return inspect(cmd.Context(), src, args[0], os.Stdout)
	},
}

func inspect(ctx context.Context, src *storage.Source, input string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rc, err := src.Open(ctx, input)
	if err != nil {
		return err
	}
	defer rc.Close()

	table, err := samples.Read(input, rc)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-12s %s\n", "FILE", table.Name)
	fmt.Fprintf(w, "%-12s %s\n", "TYPE", table.SourceType())
	fmt.Fprintf(w, "%-12s %s\n", "ENDPOINT", table.Endpoint())
	fmt.Fprintf(w, "%-12s %s\n", "TIMESTAMP", table.Timestamp())
	fmt.Fprintf(w, "%-12s %d\n", "SAMPLES", len(table.Samples))

	var columns []string
	for _, col := range samples.MetricColumns {
		if table.Has(col) {
			columns = append(columns, col)
		}
	}
	fmt.Fprintf(w, "%-12s %s\n\n", "COLUMNS", strings.Join(columns, ", "))

	fmt.Fprintf(w, "%-10s %s\n", "COUNT", "PARAMS")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, ps := range table.ParamSets() {
		fmt.Fprintf(w, "%-10d %s\n", ps.Count, ps.Params)
	}
	return nil
}
