package tracer

import (
	"flag"

	"github.com/pkg/errors"
)

// Span limit defaults.
const (
	DefaultAttributeCountLimit       = 128
	DefaultEventCountLimit           = 128
	DefaultLinkCountLimit            = 128
	DefaultAttributeValueLengthLimit = -1
)

// Config configures a Provider.
type Config struct {
	SpanLimits SpanLimits `yaml:"span_limits"`
}

// RegisterFlags with prefix registers flags where every name is prefixed by
// prefix. If prefix is a non-empty string, prefix should end with a period.
func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	c.SpanLimits.RegisterFlagsWithPrefix(prefix, f)
}

// RegisterFlags registers flags.
func (c *Config) RegisterFlags(flags *flag.FlagSet) {
	c.RegisterFlagsWithPrefix("", flags)
}

// Validate fails fast on configurations a provider cannot run with.
func (c *Config) Validate() error {
	return c.SpanLimits.Validate()
}

// SpanLimits bounds what a single span can accumulate. Every drop or
// eviction is counted on the span itself. A count limit of zero keeps
// nothing; the value length limit uses -1 for no truncation.
type SpanLimits struct {
	AttributeCountLimit       int `yaml:"attribute_count_limit"`
	EventCountLimit           int `yaml:"event_count_limit"`
	LinkCountLimit            int `yaml:"link_count_limit"`
	AttributeValueLengthLimit int `yaml:"attribute_value_length_limit"`
}

// RegisterFlags with prefix registers flags where every name is prefixed by
// prefix. If prefix is a non-empty string, prefix should end with a period.
func (l *SpanLimits) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&l.AttributeCountLimit, prefix+"span.attribute-count-limit", DefaultAttributeCountLimit, "Maximum number of attributes kept on a span. A new key arriving over the limit evicts the oldest attribute.")
	f.IntVar(&l.EventCountLimit, prefix+"span.event-count-limit", DefaultEventCountLimit, "Maximum number of events kept on a span. A new event over the limit evicts the oldest.")
	f.IntVar(&l.LinkCountLimit, prefix+"span.link-count-limit", DefaultLinkCountLimit, "Maximum number of links kept on a span. Links over the limit are dropped at creation.")
	f.IntVar(&l.AttributeValueLengthLimit, prefix+"span.attribute-value-length-limit", DefaultAttributeValueLengthLimit, "Maximum length in bytes of string attribute values. -1 keeps values whole.")
}

// RegisterFlags registers flags.
func (l *SpanLimits) RegisterFlags(flags *flag.FlagSet) {
	l.RegisterFlagsWithPrefix("", flags)
}

// Validate fails fast on limits the span state machine cannot enforce.
func (l *SpanLimits) Validate() error {
	if l.AttributeCountLimit < 0 {
		return errors.New("attribute count limit cannot be negative")
	}
	if l.EventCountLimit < 0 {
		return errors.New("event count limit cannot be negative")
	}
	if l.LinkCountLimit < 0 {
		return errors.New("link count limit cannot be negative")
	}
	if l.AttributeValueLengthLimit < -1 {
		return errors.New("attribute value length limit must be -1 or above")
	}
	return nil
}

// UnmarshalYAML implement Yaml Unmarshaler
func (l *SpanLimits) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw SpanLimits
	var cfg raw
	if l.AttributeCountLimit != 0 {
		// we used flags to set that value, which already has sane default.
		cfg = raw(*l)
	} else {
		// force sane defaults.
		cfg = raw{
			AttributeCountLimit:       DefaultAttributeCountLimit,
			EventCountLimit:           DefaultEventCountLimit,
			LinkCountLimit:            DefaultLinkCountLimit,
			AttributeValueLengthLimit: DefaultAttributeValueLengthLimit,
		}
	}

	if err := unmarshal(&cfg); err != nil {
		return err
	}

	*l = SpanLimits(cfg)
	return nil
}
