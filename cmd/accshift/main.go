package main

import (
	"fmt"
	"os"

	"github.com/accshift/accshift/internal/broker"
	"github.com/accshift/accshift/internal/config"
	"github.com/accshift/accshift/internal/db"
	"github.com/accshift/accshift/internal/identity"
	"github.com/accshift/accshift/internal/store"
	"github.com/accshift/accshift/internal/switcher"
	"github.com/accshift/accshift/internal/usage"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "accshift",
	Short: "Manages multiple broker accounts and switches the active session",
	Long: `accshift keeps a pool of OAuth2/OIDC accounts for the identity broker,
refreshes their tokens, detects administrative suspension, and switches
which account occupies the consuming application's credential slot while
rotating the device identifier between accounts.`,
	SilenceUsage: true,
}

// newSwitcher wires the full stack from configuration. Every command goes
// through here so the components always agree on paths.
func newSwitcher() (*switcher.Switcher, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.ParsedRequestTimeout()
	if err != nil {
		return nil, err
	}
	grace, err := cfg.ParsedGraceWindow()
	if err != nil {
		return nil, err
	}

	statsDB, err := db.InitDB(cfg.Paths.StatsDB)
	if err != nil {
		return nil, fmt.Errorf("open stats database: %w", err)
	}

	st := store.New(
		store.NewDirBackend(cfg.Paths.AccountsDir),
		cfg.Paths.ActiveSessionFile,
		cfg.Paths.RegistrationsDir,
		cfg.Paths.BackupsDir,
	)

	return switcher.New(
		st,
		broker.NewClient(cfg.BrokerDomain, timeout),
		broker.NewProbe(cfg.BrokerDomain, timeout),
		identity.NewRotator(cfg.Paths.DeviceIDFile),
		usage.NewCache(),
		statsDB,
		grace,
	), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config file")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newRefreshAllCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newRotateIDCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "accshift.yaml"
	}
	return home + "/.accshift/config.yaml"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
