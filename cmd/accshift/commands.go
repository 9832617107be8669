package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/accshift/accshift/internal/api"
	"github.com/accshift/accshift/internal/switcher"
	"github.com/accshift/accshift/internal/version"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts, active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}

			accounts := sw.ListAccounts()
			if len(accounts) == 0 {
				fmt.Println("No accounts stored.")
				return nil
			}

			for _, acc := range accounts {
				marker := " "
				if acc.Active {
					marker = "*"
				}
				state := "ok"
				if acc.Expired {
					state = "expired"
				}
				if acc.Usage != nil && acc.Usage.Suspended {
					state = "SUSPENDED"
				}
				line := fmt.Sprintf("%s %-24s %-10s %-8s expires %s switches %d",
					marker, acc.AccountName, acc.Region, state,
					acc.ExpiresAt.Format(time.RFC3339), acc.ActivationCount)
				if acc.Usage != nil && acc.Usage.UsageLimit > 0 {
					line += fmt.Sprintf("  usage %d/%d (%.0f%%)",
						acc.Usage.CurrentUsage, acc.Usage.UsageLimit, acc.Usage.Percentage)
					if acc.Usage.Stale {
						line += " [stale]"
					}
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <account>",
		Short: "Make an account the active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}
			return reportResult(sw.SwitchTo(cmd.Context(), args[0]))
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <account>",
		Short: "Refresh an account's tokens without activating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}
			return reportResult(sw.Refresh(cmd.Context(), args[0]))
		},
	}
}

func newRefreshAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-all",
		Short: "Refresh every refresh-eligible account sequentially",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}

			failed := 0
			for _, result := range sw.RefreshAll(cmd.Context()) {
				if result.Success {
					if result.Warning != "" {
						fmt.Printf("~ %s: %s\n", result.AccountName, result.Warning)
					} else {
						fmt.Printf("+ %s: refreshed\n", result.AccountName)
					}
					continue
				}
				failed++
				fmt.Printf("! %s: %s (%s)\n", result.AccountName, result.Error, result.ErrorMessage)
			}
			if failed > 0 {
				return fmt.Errorf("%d account(s) failed to refresh", failed)
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account>",
		Short: "Remove an account and its derived statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}
			if err := sw.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health <account>",
		Short: "Probe an account for suspension and current usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}

			health := sw.CheckHealth(cmd.Context(), args[0])
			if health.Error != "" {
				return fmt.Errorf("%s: %s", health.Error, health.ErrorMessage)
			}
			if health.Suspended {
				fmt.Printf("%s is SUSPENDED: %s\n", health.AccountName, health.SuspensionReason)
				return nil
			}
			fmt.Printf("%s is healthy", health.AccountName)
			if health.Usage != nil && health.Usage.UsageLimit > 0 {
				fmt.Printf(", usage %d/%d (%.0f%%)",
					health.Usage.CurrentUsage, health.Usage.UsageLimit, health.Usage.Percentage)
			}
			fmt.Println()
			return nil
		},
	}
}

func newRotateIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-id",
		Short: "Activate a fresh device identifier bound to no account",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}
			id, err := sw.RotateIdentity()
			if err != nil {
				return err
			}
			fmt.Printf("Device identifier rotated: %s\n", id)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the account operations over a local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := newSwitcher()
			if err != nil {
				return err
			}

			log.Printf("🚀 accshift API listening on http://%s", addr)
			return http.ListenAndServe(addr, api.NewRouter(sw))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("accshift %s (%s, built %s)\n", version.Version, version.Commit, version.BuildTime)
		},
	}
}

// reportResult renders a structured result for the terminal and decides the
// exit status. Banned and invalid-credential outcomes get distinct wording.
func reportResult(result switcher.Result) error {
	if result.Success {
		if result.Warning != "" {
			fmt.Printf("OK (with warning): %s\n", result.Warning)
		} else {
			fmt.Printf("OK: %s\n", result.AccountName)
		}
		return nil
	}
	switch {
	case result.IsBanned:
		return fmt.Errorf("%s is banned/suspended: %s", result.AccountName, result.ErrorMessage)
	case result.IsInvalidCredentials:
		return fmt.Errorf("%s needs re-login (%s): %s", result.AccountName, result.Error, result.ErrorMessage)
	default:
		return fmt.Errorf("%s failed (%s): %s", result.AccountName, result.Error, result.ErrorMessage)
	}
}
