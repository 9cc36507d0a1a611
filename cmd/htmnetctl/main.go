package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vitaly-krugl/htmresearch/internal/logging"
	"github.com/vitaly-krugl/htmresearch/internal/storage"
	htmapi "github.com/vitaly-krugl/htmresearch/pkg/htmresearch"
)

const (
	envPrefix     = "HTMNET"
	defaultDBPath = "htmnet.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(viper.New())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// newRootCommand wires the persistent settings through v so that flags,
// HTMNET_* environment variables and an optional settings file resolve in
// that order.
func newRootCommand(v *viper.Viper) *cobra.Command {
	var settingsFile string

	root := &cobra.Command{
		Use:           "htmnetctl",
		Short:         "Assemble and inspect HTM classification networks",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if settingsFile != "" {
				v.SetConfigFile(settingsFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read settings: %w", err)
				}
			}
			_, err := logging.Install(cmd.ErrOrStderr(), logging.Options{
				Level:  v.GetString("log-level"),
				Format: v.GetString("log-format"),
			})
			return err
		},
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := root.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "settings file (yaml, json or toml) for the persistent flags")
	flags.String("store", storage.DefaultStoreKind, "store backend: memory or sqlite")
	flags.String("db-path", defaultDBPath, "sqlite database path")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", logging.FormatAuto, "log format: auto, text or json")
	for _, name := range []string{"store", "db-path", "log-level", "log-format"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newInitCommand(),
		newValidateCommand(),
		newBuildCommand(v),
		newLearnCommand(v),
		newSummaryCommand(v),
		newRegionsCommand(),
		newEncodersCommand(),
	)
	return root
}

func newClient(cmd *cobra.Command, v *viper.Viper) (*htmapi.Client, error) {
	client, err := htmapi.New(htmapi.Options{
		StoreKind: v.GetString("store"),
		DBPath:    v.GetString("db-path"),
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

var longRoot = `
htmnetctl builds classification networks from a declarative configuration:
a record sensor, then optional spatial pooler, temporal memory and temporal
pooler regions, then a classifier. Widths are checked at every join and
scalar encoder bounds are taken from the data file.
`
