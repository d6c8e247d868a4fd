package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipcraft/internal/session"
)

func newRevertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revert",
		Short: "Undo the last edit and return to the original video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditor(cmd, func(ws *workspace) error {
				removed, err := ws.editor.Revert(cmd.Context())
				if err != nil {
					return reported(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reverted %s; the original video is current\n", removed.Kind.DisplayName())
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the edits applied in this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, snap, err := ctx.readSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			records := snap.Records
			if records == nil {
				records = []session.Record{}
			}
			if jsonOutput {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No edits applied")
				return nil
			}
			fmt.Fprintln(out, renderHistory(snap))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderHistory(snap session.Snapshot) string {
	rows := make([][]string, 0, len(snap.Records))
	for i, rec := range snap.Records {
		current := ""
		if snap.EffectiveRef != "" && rec.ArtifactRef == snap.EffectiveRef && i == len(snap.Records)-1 {
			current = "*"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			rec.Label(),
			rec.Params.Summary(),
			rec.JobID,
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			current,
		})
	}
	return renderTable(
		[]string{"#", "Edit", "Parameters", "Job", "Applied", "Current"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
