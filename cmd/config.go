package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	cfgpkg "gaebench/config"

	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gaebench configuration",
	Long:  "View and modify the report defaults stored in .gaebench/config.json",
}

var configSetCmd = &cobra.Command{
	Use:   "set field=value",
	Short: "Set a configuration field",
	Long:  "Set the value of a specific configuration field (e.g., config set percentiles=50,99). Lists are comma separated or a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		parts := strings.SplitN(args[0], "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format. Use: field=value")
		}
		if err := setField(GConfig.ctlConfig, parts[0], parts[1]); err != nil {
			return err
		}

		// Validate the new configuration
		if err := cfgpkg.ValidateConfig(GConfig.ctlConfig); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return GConfig.ctlConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get field",
	Short: "Get a configuration field value",
	Long:  "Get the current value of a specific configuration field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		fieldVal, _, ok := fieldByName(GConfig.ctlConfig, args[0])
		if !ok {
			return fmt.Errorf("field %s not found", args[0])
		}
		fmt.Println(formatValue(fieldVal))
		return nil
	},
}

var configLoadFileCmd = &cobra.Command{
	Use:   "load-file path/to/config.json",
	Short: "Load configuration from file",
	Long:  "Load and replace current configuration with contents from specified JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newConfig, err := cfgpkg.ReadConfig(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		GConfig.ctlConfig = newConfig

		if err := initConfigDir(); err != nil {
			return err
		}
		return GConfig.ctlConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	Long:  "View the current configuration in JSON format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		data, err := json.MarshalIndent(GConfig.ctlConfig, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration fields",
	Long:  "List all available configuration fields with their types and current values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		listFields(os.Stdout, GConfig.ctlConfig)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  "Initialize the configuration with default values and save it in JSON format in the config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfigDir(); err != nil {
			return err
		}
		return initConfigFile()
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset to default configuration",
	Long:  "Reset the configuration with default values and save it in JSON format in the config directory",
	Args:  cobra.NoArgs,
	RunE:  configInitCmd.RunE,
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configResetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configLoadFileCmd)
	ConfigCmd.AddCommand(configViewCmd)
	ConfigCmd.AddCommand(configListCmd)
}

// jsonName is the config file key of a struct field
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// fieldByName looks up a config field by its config file key, e.g. etcd_timeout
func fieldByName(cfg *cfgpkg.ReportConfig, name string) (reflect.Value, reflect.StructField, bool) {
	configVal := reflect.ValueOf(cfg).Elem()
	configType := configVal.Type()
	for i := 0; i < configType.NumField(); i++ {
		if jsonName(configType.Field(i)) == name {
			return configVal.Field(i), configType.Field(i), true
		}
	}
	return reflect.Value{}, reflect.StructField{}, false
}

func parseScalar(kind reflect.Kind, value string) (reflect.Value, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case reflect.Int:
		v, err := strconv.Atoi(value)
		return reflect.ValueOf(v), err
	case reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		return reflect.ValueOf(v), err
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		return reflect.ValueOf(v), err
	case reflect.String:
		return reflect.ValueOf(value), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported type %s", kind)
}

func setField(cfg *cfgpkg.ReportConfig, name, value string) error {
	fieldVal, _, ok := fieldByName(cfg, name)
	if !ok {
		return fmt.Errorf("field %s not found", name)
	}

	// Handle duration fields specially
	if fieldVal.Type() == reflect.TypeOf(cfgpkg.Duration(0)) {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", name, err)
		}
		fieldVal.Set(reflect.ValueOf(cfgpkg.Duration(duration)))
		return nil
	}

	if fieldVal.Kind() != reflect.Slice {
		v, err := parseScalar(fieldVal.Kind(), value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		fieldVal.Set(v)
		return nil
	}

	// parameter sets contain commas, so lists may also be given as a JSON array
	if strings.HasPrefix(strings.TrimSpace(value), "[") {
		slice := reflect.New(fieldVal.Type())
		if err := json.Unmarshal([]byte(value), slice.Interface()); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		fieldVal.Set(slice.Elem())
		return nil
	}

	var values []string
	if value != "" {
		values = strings.Split(value, ",")
	}
	slice := reflect.MakeSlice(fieldVal.Type(), len(values), len(values))
	for i, v := range values {
		elem, err := parseScalar(fieldVal.Type().Elem().Kind(), v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		slice.Index(i).Set(elem)
	}
	fieldVal.Set(slice)
	return nil
}

func formatValue(fieldVal reflect.Value) string {
	if fieldVal.Kind() != reflect.Slice {
		return fmt.Sprint(fieldVal.Interface())
	}
	if fieldVal.Len() == 0 {
		return "[]"
	}
	sliceVals := make([]string, fieldVal.Len())
	for j := 0; j < fieldVal.Len(); j++ {
		sliceVals[j] = fmt.Sprint(fieldVal.Index(j).Interface())
	}
	return strings.Join(sliceVals, ",")
}

func listFields(w io.Writer, cfg *cfgpkg.ReportConfig) {
	configVal := reflect.ValueOf(cfg).Elem()
	configType := configVal.Type()

	fmt.Fprintf(w, "%-20s %-15s %-15s %s\n", "FIELD", "TYPE", "REQUIRED", "CURRENT VALUE")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for i := 0; i < configVal.NumField(); i++ {
		fieldType := configType.Field(i)
		required := strings.Contains(fieldType.Tag.Get("validate"), "required")
		fmt.Fprintf(w, "%-20s %-15s %-15v %s\n",
			jsonName(fieldType),
			fieldType.Type.String(),
			required,
			formatValue(configVal.Field(i)))
	}
}

func initConfigDir() error {
	if _, err := os.Stat(GConfig.ctlConfigPath); err != nil {
		if os.IsNotExist(err) {
			if err = os.MkdirAll(GConfig.ctlConfigPath, 0755); err != nil {
				fmt.Println("Failed to create config directory: ", err)
				return err
			}
		} else {
			fmt.Println("Failed to check config directory: ", err)
			return err
		}
	}
	return nil
}

func initConfigFile() error {
	defaultConfig := cfgpkg.GetDefaultConfig()
	GConfig.ctlConfig = defaultConfig
	err := defaultConfig.WriteConfig(GConfig.GetConfigFilePath())
	if err != nil {
		fmt.Println("Failed to write default config file: ", err)
		return err
	}
	fmt.Println("Default configuration initialized and saved in ", GConfig.GetConfigFilePath())
	return nil
}
