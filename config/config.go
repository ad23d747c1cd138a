package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gaebench/constants"
	"gaebench/report"
	"gaebench/samples"
	"gaebench/storage"

	validator "github.com/go-playground/validator/v10"
)

type ReportConfig struct {
	// Parameter sets, either serialized verbatim or as {'bytes': N} payload sizes
	ParamSets []string `json:"param_sets" validate:"omitempty,dive,required"`
	Bytes     []int    `json:"bytes" validate:"omitempty,dive,gt=0"`

	Columns      []string  `json:"columns" validate:"required,min=1,dive,valid_metric_column"`
	Percentiles  []float64 `json:"percentiles" validate:"required,min=1,dive,gte=0,lte=100"`
	Output       string    `json:"output" validate:"required,filepath"`
	EndpointCol  bool      `json:"endpoint_col"`
	TimestampCol bool      `json:"timestamp_col"`

	// Inputs used when none are given on the command line
	Inputs []string `json:"inputs" validate:"omitempty,dive,valid_input"`

	// Optional sinks
	ParquetFile  string `json:"parquet_file" validate:"omitempty,filepath"`
	PromTextfile string `json:"prom_textfile" validate:"omitempty,filepath"`

	// S3 parameters
	S3Region   string `json:"s3_region" validate:"required"`
	S3Endpoint string `json:"s3_endpoint" validate:"omitempty,url"`

	// etcd parameters
	EtcdEndpoints   []string `json:"etcd_endpoints" validate:"omitempty,dive,valid_endpoint"`
	EtcdPrefix      string   `json:"etcd_prefix" validate:"required,startswith=/"`
	EtcdDialTimeout Duration `json:"etcd_dial_timeout" validate:"required"`
	EtcdTimeout     Duration `json:"etcd_timeout" validate:"required"`

	LogLevel string `json:"log_level" validate:"required,oneof=debug info warn error"`
	LogFile  string `json:"log_file" validate:"omitempty,filepath"`
}

// Custom validation tags
const (
	metricColumnTag = "valid_metric_column"
	endpointTag     = "valid_endpoint"
	inputTag        = "valid_input"
)

// RegisterCustomValidators registers all custom validators for ReportConfig
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation(metricColumnTag, validateMetricColumn); err != nil {
		return fmt.Errorf("failed to register metric column validator: %w", err)
	}

	// Register endpoint validator
	if err := v.RegisterValidation(endpointTag, validateEndpoint); err != nil {
		return fmt.Errorf("failed to register endpoint validator: %w", err)
	}

	if err := v.RegisterValidation(inputTag, validateInput); err != nil {
		return fmt.Errorf("failed to register input validator: %w", err)
	}

	return nil
}

func validateMetricColumn(fl validator.FieldLevel) bool {
	return samples.IsMetricColumn(fl.Field().String())
}

// validateInput accepts local paths and well-formed s3:// object URIs
func validateInput(fl validator.FieldLevel) bool {
	input := fl.Field().String()
	if strings.HasPrefix(input, "s3://") {
		_, _, ok := storage.ParseS3URI(input)
		return ok
	}
	return strings.TrimSpace(input) != ""
}

// validateEndpoint ensures the endpoint string is in the correct format
func validateEndpoint(fl validator.FieldLevel) bool {
	endpoint := fl.Field().String()

	// Strip protocol if present
	if strings.HasPrefix(endpoint, "http://") {
		endpoint = endpoint[7:]
	} else if strings.HasPrefix(endpoint, "https://") {
		endpoint = endpoint[8:]
	}

	host, port, err := net.SplitHostPort(endpoint)
	if err != nil || host == "" {
		return false
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return false
	}

	// etcd members are usually addressed by hostname inside a cluster
	return net.ParseIP(host) != nil || !strings.ContainsAny(host, "/:@ ")
}

func GetDefaultConfig() *ReportConfig {
	return &ReportConfig{
		Bytes:           []int{constants.DEFAULT_BYTES},
		Columns:         append([]string(nil), samples.MetricColumns...),
		Percentiles:     append([]float64(nil), constants.DEFAULT_PERCENTILES...),
		Output:          constants.DEFAULT_OUTPUT_FILE,
		Inputs:          []string{},
		EtcdEndpoints:   []string{},
		S3Region:        constants.DEFAULT_S3_REGION,
		EtcdPrefix:      constants.DEFAULT_ETCD_PREFIX,
		EtcdDialTimeout: Duration(constants.DEFAULT_ETCD_DIAL_TIMEOUT),
		EtcdTimeout:     Duration(constants.DEFAULT_ETCD_PUT_TIMEOUT),
		LogLevel:        constants.DEFAULT_LOG_LEVEL,
	}
}

func ValidateConfig(config *ReportConfig) error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}

	if err := v.Struct(config); err != nil {
		return err
	}
	if len(config.ParamSets) == 0 && len(config.Bytes) == 0 {
		return errors.New("either param_sets or bytes must be set")
	}
	return nil
}

// ParamSetList returns the configured parameter sets, falling back to one
// {'bytes': N} set per payload size
func (cfg *ReportConfig) ParamSetList() []string {
	if len(cfg.ParamSets) > 0 {
		return cfg.ParamSets
	}
	sets := make([]string, len(cfg.Bytes))
	for i, n := range cfg.Bytes {
		sets[i] = samples.BytesParams(n)
	}
	return sets
}

// ReportOptions builds the report run for inputs, or for the configured inputs when none are given
func (cfg *ReportConfig) ReportOptions(inputs []string, runID string) report.Config {
	if len(inputs) == 0 {
		inputs = cfg.Inputs
	}
	return report.Config{
		Inputs:           inputs,
		ParamSets:        cfg.ParamSetList(),
		Columns:          cfg.Columns,
		Percentiles:      cfg.Percentiles,
		Output:           cfg.Output,
		IncludeEndpoint:  cfg.EndpointCol,
		IncludeTimestamp: cfg.TimestampCol,
		RunID:            runID,
	}
}

// S3Options returns the object store settings, with static credentials taken from the environment
func (cfg *ReportConfig) S3Options() storage.S3Options {
	return storage.S3Options{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     os.Getenv(constants.ENV_S3_ACCESS_KEY_ID),
		SecretAccessKey: os.Getenv(constants.ENV_S3_SECRET_ACCESS_KEY),
	}
}

func ReadConfig(path string) (*ReportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reportConfig := &ReportConfig{}
	err = json.Unmarshal(data, reportConfig)
	if err != nil {
		return nil, err
	}
	err = ValidateConfig(reportConfig)
	if err != nil {
		return nil, err
	}
	return reportConfig, nil
}

func (cfg *ReportConfig) WriteConfig(path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
