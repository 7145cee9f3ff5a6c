package processor

import (
	"flag"
	"time"

	"github.com/pkg/errors"
)

// Batch processor defaults.
const (
	DefaultMaxQueueSize       = 2048
	DefaultMaxExportBatchSize = 512
	DefaultScheduledDelay     = 5 * time.Second
	DefaultExportTimeout      = 30 * time.Second
)

// BatchConfig configures the batching span processor.
type BatchConfig struct {
	MaxQueueSize       int           `yaml:"max_queue_size"`
	MaxExportBatchSize int           `yaml:"max_export_batch_size"`
	ScheduledDelay     time.Duration `yaml:"scheduled_delay"`
	ExportTimeout      time.Duration `yaml:"export_timeout"`
}

// RegisterFlags with prefix registers flags where every name is prefixed by
// prefix. If prefix is a non-empty string, prefix should end with a period.
func (c *BatchConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.MaxQueueSize, prefix+"batch.max-queue-size", DefaultMaxQueueSize, "Maximum number of ended spans held in the queue. New spans are dropped once it is full.")
	f.IntVar(&c.MaxExportBatchSize, prefix+"batch.max-export-batch-size", DefaultMaxExportBatchSize, "Maximum number of spans delivered to the exporter in one batch.")
	f.DurationVar(&c.ScheduledDelay, prefix+"batch.scheduled-delay", DefaultScheduledDelay, "Maximum wait before exporting a partial batch.")
	f.DurationVar(&c.ExportTimeout, prefix+"batch.export-timeout", DefaultExportTimeout, "Maximum time allowed for a single export call.")
}

// RegisterFlags registers flags.
func (c *BatchConfig) RegisterFlags(flags *flag.FlagSet) {
	c.RegisterFlagsWithPrefix("", flags)
}

// Validate fails fast on configurations the processor cannot run with.
func (c *BatchConfig) Validate() error {
	if c.MaxQueueSize <= 0 {
		return errors.New("max queue size must be positive")
	}
	if c.MaxExportBatchSize <= 0 {
		return errors.New("max export batch size must be positive")
	}
	if c.MaxExportBatchSize > c.MaxQueueSize {
		return errors.New("max export batch size cannot exceed max queue size")
	}
	if c.ScheduledDelay <= 0 {
		return errors.New("scheduled delay must be positive")
	}
	if c.ExportTimeout <= 0 {
		return errors.New("export timeout must be positive")
	}
	return nil
}

// UnmarshalYAML implement Yaml Unmarshaler
func (c *BatchConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw BatchConfig
	var cfg raw
	if c.MaxQueueSize != 0 {
		// we used flags to set that value, which already has sane default.
		cfg = raw(*c)
	} else {
		// force sane defaults.
		cfg = raw{
			MaxQueueSize:       DefaultMaxQueueSize,
			MaxExportBatchSize: DefaultMaxExportBatchSize,
			ScheduledDelay:     DefaultScheduledDelay,
			ExportTimeout:      DefaultExportTimeout,
		}
	}

	if err := unmarshal(&cfg); err != nil {
		return err
	}

	*c = BatchConfig(cfg)
	return nil
}
