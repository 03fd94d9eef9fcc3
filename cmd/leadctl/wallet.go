package main

import (
	"fmt"
	"time"

	"leadledger_backend/internal/wallet"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect and correct credit wallets",
	}
	cmd.AddCommand(showWalletCmd(), depositCmd(), expireTrialsCmd())
	return cmd
}

func showWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <account-id>",
		Short: "Print a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := e.wallets.Get(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), w)
		},
	}
}

func depositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit <account-id>",
		Short: "Add credits to a wallet bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
			}
			amount, _ := cmd.Flags().GetInt("amount")
			bucketRaw, _ := cmd.Flags().GetString("bucket")
			reference, _ := cmd.Flags().GetString("reference")
			bucket := wallet.Bucket(bucketRaw)
			if bucket != wallet.BucketSpendable && bucket != wallet.BucketFrozen {
				return fmt.Errorf("bucket must be %q or %q", wallet.BucketSpendable, wallet.BucketFrozen)
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := e.wallets.Deposit(cmd.Context(), accountID, amount, bucket, reference)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), w)
		},
	}
	cmd.Flags().Int("amount", 0, "credits to add")
	cmd.Flags().String("bucket", string(wallet.BucketSpendable), "target bucket (spendable, frozen)")
	cmd.Flags().String("reference", "", "idempotency reference")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func expireTrialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-trials",
		Short: "Remove unspent trial credits past their expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.wallets.ExpireTrials(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d trials\n", n)
			return nil
		},
	}
}

func addonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addons",
		Short: "Grant and redeem add-on buckets",
	}
	cmd.AddCommand(earnCmd(), redeemCmd())
	return cmd
}

func earnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "earn <account-id> <kind>",
		Short: "Credit an add-on bucket; omitted amounts use the catalog grant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, kind, err := parseAddOnArgs(args)
			if err != nil {
				return err
			}
			credits := optionalInt(cmd, "credits")
			seats := optionalInt(cmd, "seats")
			reference, _ := cmd.Flags().GetString("reference")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := e.addons.Earn(cmd.Context(), accountID, kind, credits, seats, reference)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), w)
		},
	}
	cmd.Flags().Int("credits", 0, "credits to add")
	cmd.Flags().Int("seats", 0, "seats to add")
	cmd.Flags().String("reference", "", "idempotency reference")
	return cmd
}

func redeemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <account-id> <kind>",
		Short: "Redeem an add-on bucket into spendable credits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, kind, err := parseAddOnArgs(args)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			redemption, w, err := e.addons.Redeem(cmd.Context(), accountID, kind)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"redemption": redemption, "wallet": w})
		},
	}
}

func parseAddOnArgs(args []string) (uuid.UUID, wallet.AddOnKind, error) {
	accountID, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid account id: %w", err)
	}
	kind := wallet.AddOnKind(args[1])
	if !kind.Valid() {
		return uuid.Nil, "", fmt.Errorf("unknown add-on kind %q", args[1])
	}
	return accountID, kind, nil
}

// optionalInt returns nil unless the flag was set explicitly.
func optionalInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}
