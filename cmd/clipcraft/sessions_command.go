package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipcraft/internal/session"
	"clipcraft/internal/textutil"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored edit sessions",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := session.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			summaries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				if summaries == nil {
					summaries = []session.Summary{}
				}
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					s.Name,
					s.PrimaryName,
					fmt.Sprintf("%d", s.Edits),
					yesNo(s.Pending),
					s.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "Video", "Edits", "Pending", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored session and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := textutil.SanitizeToken(args[0])
			lock, err := session.AcquireLock(cfg.LockPath(name))
			if err != nil {
				if errors.Is(err, session.ErrLocked) {
					return fmt.Errorf("session %q is in use by another clipcraft process", name)
				}
				return err
			}
			defer lock.Release()

			store, err := session.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), name); err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					return fmt.Errorf("no session named %q", name)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", name)
			return nil
		},
	}
}
