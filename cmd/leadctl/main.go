// Command leadctl runs operator tasks against the lead ledger database:
// migrations, rescoring, review decisions and wallet corrections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "leadctl",
		Short:             "Operate the lead ledger",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./leadctl.yaml)")
	root.PersistentFlags().String("database-url", "", "postgres connection string (env DATABASE_URL)")
	root.PersistentFlags().String("plans-file", "", "plan catalog YAML (env PLANS_FILE, default embedded)")
	root.PersistentFlags().String("env", "development", "log format selector (development, production)")
	root.PersistentFlags().String("phone-region", "US", "default region for phone normalization")

	_ = viper.BindPFlag("database_url", root.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("plans_file", root.PersistentFlags().Lookup("plans-file"))
	_ = viper.BindPFlag("app_env", root.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("phone_region", root.PersistentFlags().Lookup("phone-region"))

	root.AddCommand(migrateCmd())
	root.AddCommand(leadsCmd())
	root.AddCommand(walletCmd())
	root.AddCommand(addonsCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("leadctl")
		viper.SetConfigType("yaml")
	}

	// Same variable names the services read.
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}
