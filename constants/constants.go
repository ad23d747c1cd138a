package constants

import "time"

const (
	// config
	DEFAULT_CONFIG_DIR  = ".gaebench"
	DEFAULT_CONFIG_FILE = "config.json"

	// report
	DEFAULT_OUTPUT_FILE = "./percentiles.csv"
	DEFAULT_BYTES       = 10

	// generator
	DEFAULT_SEED            int64 = 0x207B096061CDA310
	DEFAULT_SAMPLES_PER_SET       = 1000
	DEFAULT_SOURCE_TYPE           = "std"
	DEFAULT_ENDPOINT              = "profile_memcache"
	DEFAULT_SAMPLE_INTERVAL       = 100 * time.Millisecond
	DEFAULT_FAILURE_RATE          = 0.01

	// s3
	DEFAULT_S3_REGION        = "us-east-1"
	ENV_S3_ACCESS_KEY_ID     = "GAEBENCH_S3_ACCESS_KEY_ID"
	ENV_S3_SECRET_ACCESS_KEY = "GAEBENCH_S3_SECRET_ACCESS_KEY"

	// etcd
	DEFAULT_ETCD_PREFIX       = "/gaebench/reports"
	DEFAULT_ETCD_DIAL_TIMEOUT = 5 * time.Second
	DEFAULT_ETCD_PUT_TIMEOUT  = 2 * time.Second

	// logging
	DEFAULT_LOG_LEVEL = "info"
)

// Percentiles reported when none are configured
var DEFAULT_PERCENTILES = []float64{10, 50, 90, 95, 99}
