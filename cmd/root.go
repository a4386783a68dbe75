package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "CFCHECK"

var cfgFile string
var verbose bool
var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "cfcheck",
	Short: "Detect whether a website is served through Cloudflare or another CDN",
	Long: `cfcheck gathers evidence from the page headers, the DNS nameservers and the
certificate-transparency logs of a website and reports whether it is fronted by
Cloudflare or another CDN / reverse proxy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l

		if err := applyConfigDefaults(cliConfig, cmd.Flags()); err != nil {
			return err
		}
		if err := cliConfig.Validate(); err != nil {
			return err
		}

		logger.Debug("configuration loaded",
			zap.String("config_file", viper.ConfigFileUsed()),
			zap.Bool("direct", cliConfig.Relay.Direct),
			zap.String("doh_format", cliConfig.DoH.Format),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".cfcheck")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist; the default location is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// newLogger keeps the CLI quiet unless --verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cfcheck.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	registerProbeFlags(rootCmd.PersistentFlags(), cliConfig)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
