package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/statement-reconciliation/internal/domain/job"
)

func newBackparseCommand(opts *options) *cobra.Command {
	var account string
	var clear bool

	cmd := &cobra.Command{
		Use:   "backparse",
		Short: "Re-derive assignments for every unlocked record of one or all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var source *uuid.UUID
			if account != "" {
				id, err := uuid.Parse(account)
				if err != nil {
					return fmt.Errorf("invalid account uuid %q: %w", account, err)
				}
				source = &id
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			scopes, err := a.services.Reparse.Backparse(cmd.Context(), source, clear, opts.operator)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), scopes); err != nil {
				return err
			}
			return scopeError(scopes...)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "source account uuid; all active accounts when empty")
	cmd.Flags().BoolVar(&clear, "clear", false, "clear automated assignments before re-deriving")
	return cmd
}

func newReparseCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reparse",
		Short: "Re-derive assignments for selected records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "payment <payment-id>",
		Short: "Re-derive every unlocked record carrying the payment id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.services.Reparse.ReparseByPaymentID(cmd.Context(), args[0], opts.operator)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			return scopeError(result)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "record <source-account-uuid> <raw-record-uuid>",
		Short: "Re-derive one raw record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account uuid %q: %w", args[0], err)
			}
			raw, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid raw record uuid %q: %w", args[1], err)
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.services.Reparse.ReparseBySourceID(cmd.Context(), source, raw, opts.operator)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			return scopeError(result)
		},
	})

	return cmd
}

// scopeError turns failed scopes into a non-zero exit
func scopeError(scopes ...job.ScopeResult) error {
	failed := 0
	for _, s := range scopes {
		if !s.Success {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d scopes failed", failed, len(scopes))
}
