package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func leadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Review, score and post leads",
	}
	cmd.AddCommand(rescoreCmd(), rescoreStaleCmd(), approveCmd(), declineCmd(), postDueCmd())
	return cmd
}

func rescoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore <lead-id>",
		Short: "Recompute one lead's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid lead id: %w", err)
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			lead, previous, err := e.leads.Rescore(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d\n", lead.ID, previous, lead.RelevanceScore)
			return nil
		},
	}
}

func rescoreStaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescore-stale",
		Short: "Rescore leads stamped with an older score version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.leads.RescoreStale(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rescored %d leads\n", n)
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "maximum leads to rescore (0 uses the service batch size)")
	return cmd
}

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <lead-id>",
		Short: "Approve a pending lead and schedule its posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid lead id: %w", err)
			}
			dayOffset, _ := cmd.Flags().GetInt("day-offset")
			anchorRaw, _ := cmd.Flags().GetString("anchor")
			anchor, err := parseAnchor(anchorRaw)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			lead, err := e.leads.Approve(cmd.Context(), id, dayOffset, anchor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lead)
		},
	}
	cmd.Flags().Int("day-offset", 0, "days after the anchor before the lead is posted")
	cmd.Flags().String("anchor", "", "RFC 3339 anchor time (default: now)")
	return cmd
}

func declineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decline <lead-id>",
		Short: "Decline a pending lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid lead id: %w", err)
			}
			reason, _ := cmd.Flags().GetString("reason")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			lead, err := e.leads.Decline(cmd.Context(), id, reason)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lead)
		},
	}
	cmd.Flags().String("reason", "", "decline reason shown to the submitter")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func postDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-due",
		Short: "Post every approved lead whose posting time has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			posted, err := e.leads.PostDue(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			for _, lead := range posted {
				fmt.Fprintln(cmd.OutOrStdout(), lead.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %d leads\n", len(posted))
			return nil
		},
	}
}

func parseAnchor(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor: %w", err)
	}
	t = t.UTC()
	return &t, nil
}
