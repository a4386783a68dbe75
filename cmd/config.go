package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/cfcheck/internal/checker"
	consts "github.com/khanhnv2901/cfcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

const (
	defaultTimeoutSeconds = 10
	defaultResultsDir     = "./results"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Relay      RelayConfig
	DoH        DoHConfig
	CrtSh      CrtShConfig
	Defaults   DefaultValues
	Check      CheckRuntimeConfig
	Indicators IndicatorConfig
}

// RelayConfig selects how the page and certificate probes reach the network.
type RelayConfig struct {
	URL    string `validate:"required_if=Direct false,omitempty,url"`
	Param  string `validate:"required_if=Direct false"`
	Direct bool
}

// DoHConfig configures the nameserver probe.
type DoHConfig struct {
	URL          string `validate:"required,url"`
	Format       string `validate:"oneof=json wire"`
	ApexFallback bool
}

// CrtShConfig configures the certificate-transparency search.
type CrtShConfig struct {
	URL string `validate:"required,url"`
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs int    `validate:"min=1,max=300"`
	Format      string `validate:"oneof=text json yaml html"`
	UserAgent   string `validate:"required"`
	ResultsDir  string `validate:"required"`
}

// CheckRuntimeConfig consolidates flag-driven settings for batch checks.
type CheckRuntimeConfig struct {
	Concurrency int `validate:"min=1,max=64"`
	RateLimit   int `validate:"min=0"`
}

// IndicatorConfig holds user-supplied CDN indicators.
type IndicatorConfig struct {
	CDN []CDNIndicatorConfig `validate:"dive"`
}

// CDNIndicatorConfig is one indicators.cdn entry of the config file.
type CDNIndicatorConfig struct {
	Header   string `mapstructure:"header" validate:"required"`
	Contains string `mapstructure:"contains"`
	Provider string `mapstructure:"provider" validate:"required"`
}

var cliConfig = newCLIConfig()

var configValidator = validator.New()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Relay: RelayConfig{
			URL:   consts.DefaultRelayURL,
			Param: consts.DefaultRelayParam,
		},
		DoH: DoHConfig{
			URL:          consts.DefaultDoHURL,
			Format:       checker.DoHFormatJSON,
			ApexFallback: true,
		},
		CrtSh: CrtShConfig{
			URL: consts.DefaultCrtShURL,
		},
		Defaults: DefaultValues{
			TimeoutSecs: defaultTimeoutSeconds,
			Format:      "text",
			UserAgent:   consts.DefaultUserAgent,
			ResultsDir:  defaultResultsDir,
		},
		Check: CheckRuntimeConfig{
			Concurrency: 1,
			RateLimit:   0,
		},
	}
}

// registerProbeFlags binds the flags shared by every command that runs checks.
func registerProbeFlags(flags *pflag.FlagSet, cfg *CLIConfig) {
	flags.StringVar(&cfg.Relay.URL, "relay", cfg.Relay.URL, "CORS relay endpoint used for the page and certificate probes")
	flags.StringVar(&cfg.Relay.Param, "relay-param", cfg.Relay.Param, "query parameter carrying the target URL")
	flags.BoolVar(&cfg.Relay.Direct, "direct", cfg.Relay.Direct, "fetch targets directly instead of through the relay")
	flags.StringVar(&cfg.DoH.URL, "doh", cfg.DoH.URL, "DNS-over-HTTPS resolver endpoint")
	flags.StringVar(&cfg.DoH.Format, "doh-format", cfg.DoH.Format, "DoH answer format: json or wire")
	flags.BoolVar(&cfg.DoH.ApexFallback, "apex-fallback", cfg.DoH.ApexFallback, "query the registrable domain when the host has no NS records")
	flags.StringVar(&cfg.CrtSh.URL, "crtsh", cfg.CrtSh.URL, "certificate-transparency search endpoint")
	flags.IntVar(&cfg.Defaults.TimeoutSecs, "timeout", cfg.Defaults.TimeoutSecs, "per-probe timeout in seconds")
	flags.StringVar(&cfg.Defaults.UserAgent, "user-agent", cfg.Defaults.UserAgent, "User-Agent sent with every probe")
	flags.StringVarP(&cfg.Defaults.Format, "format", "f", cfg.Defaults.Format, "output format: text, json, yaml or html")
}

// applyConfigDefaults merges config file and environment values into cfg when
// the user did not explicitly set the corresponding flag. A config value that
// cannot be decoded is reported as ErrInvalidConfig.
func applyConfigDefaults(cfg *CLIConfig, flags *pflag.FlagSet) error {
	applyStringDefault(flags, "relay", "relay.url", func(v string) { cfg.Relay.URL = v })
	applyStringDefault(flags, "relay-param", "relay.param", func(v string) { cfg.Relay.Param = v })
	applyBoolDefault(flags, "direct", "relay.direct", func(v bool) { cfg.Relay.Direct = v })
	applyStringDefault(flags, "doh", "doh.url", func(v string) { cfg.DoH.URL = v })
	applyStringDefault(flags, "doh-format", "doh.format", func(v string) { cfg.DoH.Format = strings.ToLower(v) })
	applyBoolDefault(flags, "apex-fallback", "doh.apex_fallback", func(v bool) { cfg.DoH.ApexFallback = v })
	applyStringDefault(flags, "crtsh", "crtsh.url", func(v string) { cfg.CrtSh.URL = v })
	applyIntDefault(flags, "timeout", "defaults.timeout_secs", func(v int) { cfg.Defaults.TimeoutSecs = v })
	applyStringDefault(flags, "format", "defaults.format", func(v string) { cfg.Defaults.Format = strings.ToLower(v) })
	applyStringDefault(flags, "user-agent", "defaults.user_agent", func(v string) { cfg.Defaults.UserAgent = v })
	applyStringDefault(flags, "results-dir", "defaults.results_dir", func(v string) { cfg.Defaults.ResultsDir = v })
	applyIntDefault(flags, "concurrency", "check.concurrency", func(v int) { cfg.Check.Concurrency = v })
	applyIntDefault(flags, "rate-limit", "check.rate_limit", func(v int) { cfg.Check.RateLimit = v })

	if viper.IsSet("indicators.cdn") {
		var custom []CDNIndicatorConfig
		if err := viper.UnmarshalKey("indicators.cdn", &custom); err != nil {
			return fmt.Errorf("%w: indicators.cdn: %v", sharedErrors.ErrInvalidConfig, err)
		}
		cfg.Indicators.CDN = custom
	}
	return nil
}

// Validate checks the merged configuration.
func (c *CLIConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", sharedErrors.ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", sharedErrors.ErrInvalidConfig, err)
	}
	return nil
}

// ProbeTimeout returns the per-probe timeout.
func (c *CLIConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.Defaults.TimeoutSecs) * time.Second
}

// CheckerOptions translates the configuration into checker options.
func (c *CLIConfig) CheckerOptions(logger *zap.Logger) checker.Options {
	custom := make([]checker.Indicator, 0, len(c.Indicators.CDN))
	for _, ind := range c.Indicators.CDN {
		custom = append(custom, checker.CustomIndicator(ind.Header, ind.Contains, ind.Provider))
	}

	return checker.Options{
		RelayURL:     c.Relay.URL,
		RelayParam:   c.Relay.Param,
		Direct:       c.Relay.Direct,
		DoHURL:       c.DoH.URL,
		DoHFormat:    c.DoH.Format,
		ApexFallback: c.DoH.ApexFallback,
		CrtShURL:     c.CrtSh.URL,
		UserAgent:    c.Defaults.UserAgent,
		ProbeTimeout: c.ProbeTimeout(),
		CustomCDN:    custom,
		Logger:       logger,
	}
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	flag := flags.Lookup(name)
	return flag != nil && flag.Changed
}

func applyStringDefault(flags *pflag.FlagSet, name, key string, setter func(string)) {
	if setter == nil || flagChanged(flags, name) || !viper.IsSet(key) {
		return
	}
	if v := viper.GetString(key); v != "" {
		setter(v)
	}
}

func applyIntDefault(flags *pflag.FlagSet, name, key string, setter func(int)) {
	if setter == nil || flagChanged(flags, name) || !viper.IsSet(key) {
		return
	}
	setter(viper.GetInt(key))
}

func applyBoolDefault(flags *pflag.FlagSet, name, key string, setter func(bool)) {
	if setter == nil || flagChanged(flags, name) || !viper.IsSet(key) {
		return
	}
	setter(viper.GetBool(key))
}
