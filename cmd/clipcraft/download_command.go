package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipcraft/internal/config"
	"clipcraft/internal/editor"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var original bool
	var output string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the current output video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditor(cmd, func(ws *workspace) error {
				req := editor.DownloadRequest{Original: original, Dir: ws.cfg.Paths.DownloadDir}
				if output != "" {
					dest, err := config.ExpandPath(output)
					if err != nil {
						return err
					}
					req.Output = dest
				}
				dest, n, err := ws.editor.Download(cmd.Context(), req)
				if err != nil {
					return reported(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", dest, n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&original, "original", false, "Download the uploaded video instead of the latest edit")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to a new file in paths.download_dir)")
	return cmd
}
