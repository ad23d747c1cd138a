package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"

	"gaebench/analysis"
	cfgpkg "gaebench/config"
	"gaebench/constants"
	"gaebench/report"
	"gaebench/samples"

	"github.com/spf13/cobra"
)

// globalConfig holds the persisted configuration of the working directory
type globalConfig struct {
	ctlConfig     *cfgpkg.ReportConfig
	ctlConfigPath string
}

var GConfig = &globalConfig{}

func (g *globalConfig) GetConfigFilePath() string {
	return path.Join(g.ctlConfigPath, constants.DEFAULT_CONFIG_FILE)
}

// reportConfig returns a copy of the persisted configuration, or the defaults when none was initialized
func (g *globalConfig) reportConfig() *cfgpkg.ReportConfig {
	if g.ctlConfig == nil {
		return cfgpkg.GetDefaultConfig()
	}
	c := *g.ctlConfig
	return &c
}

var rootCmd = &cobra.Command{
	Use:           "gaebench",
	Short:         "gaebench summarizes GAE latency benchmarks",
	Long:          "A CLI tool for turning latency samples collected against App Engine standard and flexible deployments into percentile reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

func init() {
	cobra.OnInitialize(loadGlobalConfig)
	rootCmd.AddCommand(ReportCmd)
	rootCmd.AddCommand(InspectCmd)
	rootCmd.AddCommand(GenerateCmd)
	rootCmd.AddCommand(ConfigCmd)
}

func loadGlobalConfig() {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	GConfig.ctlConfigPath = path.Join(wd, constants.DEFAULT_CONFIG_DIR)

	if _, err := os.Stat(GConfig.GetConfigFilePath()); err != nil {
		return
	}
	c, err := cfgpkg.ReadConfig(GConfig.GetConfigFilePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring invalid config %s: %v\n", GConfig.GetConfigFilePath(), err)
		return
	}
	GConfig.ctlConfig = c
}

func requireConfig() {
	if GConfig.ctlConfig == nil {
		fmt.Println("Config not found, please run 'gaebench config init' first")
		os.Exit(1)
	}
}

// errorKind names the failure class of a report run
func errorKind(err error) string {
	var (
		malformed *samples.MalformedInputError
		missing   *samples.MissingColumnError
		empty     *analysis.EmptySampleError
		publish   *report.PublishError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed_input"
	case errors.As(err, &missing):
		return "missing_column"
	case errors.As(err, &empty):
		return "empty_sample"
	case errors.Is(err, analysis.ErrPercentileRange):
		return "invalid_percentile"
	case errors.As(err, &publish):
		return "publish"
	default:
		return "internal"
	}
}

func Execute() error {
	return rootCmd.Execute()
}
