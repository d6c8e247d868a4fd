package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Finish a job left pending by an interrupted command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditor(cmd, func(ws *workspace) error {
				out, err := ws.editor.Resume(cmd.Context())
				if err != nil {
					return reported(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), out.ArtifactURL)
				return nil
			})
		},
	}
}
