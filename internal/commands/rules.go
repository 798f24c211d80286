package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/formula"
)

func newRulesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate and apply classification rules",
	}
	cmd.AddCommand(newRulesValidateCommand(), newRulesApplyCommand(opts))
	return cmd
}

func newRulesValidateCommand() *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Use:   "validate <formula>",
		Short: "Check a formula against the columns of a schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := rawrecord.LookupColumnSet(schema)
			if err != nil {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(rawrecord.SchemaVersions(), ", "))
			}

			if err := formula.Validate(args[0], columns.Columns); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "v1", "column schema version")
	return cmd
}

func newRulesApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <rule-id>...",
		Short: "Apply rules to unprocessed records, one transaction per rule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRuleIDs(args)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.services.Rules.ApplyRules(cmd.Context(), ids, opts.operator)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
}

func parseRuleIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid rule id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
