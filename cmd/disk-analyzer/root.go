package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nathsou/disk-analyzer/internal/config"
)

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "disk-analyzer",
		Short: "Explore the disk usage of a machine running the disk-analyzer server",
		Long: `Explore the disk usage of a machine running the disk-analyzer server.

Results are cached for a day (stale_time) and kept between runs in the
snapshot store. Use --refresh on a command, or r in the browser, to reload.

Configuration is read from ~/.config/disk-analyzer/config.yaml and
DISK_ANALYZER_* environment variables; flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $HOME/.config/disk-analyzer/config.yaml)")
	flags.String("server", "", "backend API URL")
	flags.StringP("output", "o", "", "output format: table, json or yaml")
	flags.String("units", "", "size units: decimal or binary")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Int("retries", 0, "retries of failed backend requests")

	bind(a.v, flags, map[string]string{
		"server":    config.KeyServer,
		"output":    config.KeyOutput,
		"units":     config.KeyUnits,
		"log-level": config.KeyLogLevel,
		"retries":   config.KeyRetries,
	})

	cmd.AddCommand(
		newInfoCmd(a),
		newLsCmd(a),
		newDirCmd(a),
		newReportCmd(a),
		newBrowseCmd(a),
		newCacheCmd(a),
	)
	return cmd
}

// commandKeys maps the flags of sub-commands to config keys. They are bound
// when the sub-command runs, as several sub-commands share a key.
var commandKeys = map[string]string{
	"files":        config.KeyTopFiles,
	"dirs":         config.KeyTopDirs,
	"metrics-addr": config.KeyMetricsAddr,
}

// bind ties config keys to the flags of fs that exist. Unchanged flags
// leave the key to the config file, the environment or the default.
func bind(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}
