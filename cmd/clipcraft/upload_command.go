package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipcraft/internal/config"
	"clipcraft/internal/media"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var typeFlag string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload the video to edit, or a music track",
		Long: "Upload a video (mp4 or mov) to start a new edit session, or a music track\n" +
			"(mp3 or wav) for the music and AI edit operations. A new video clears the\n" +
			"session's edit history.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := media.ParseAssetKind(kindFlag)
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withEditor(cmd, func(ws *workspace) error {
				var handle media.AssetHandle
				if kind.Primary() {
					handle, err = ws.editor.UploadPrimary(cmd.Context(), path, typeFlag)
				} else {
					handle, err = ws.editor.UploadAuxiliary(cmd.Context(), path, typeFlag)
				}
				if err != nil {
					return reported(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s uploaded as %s\n", handle.FileName, handle.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", string(media.AssetVideo), "Asset kind: video or music")
	cmd.Flags().StringVar(&typeFlag, "type", "", "Declared content type (defaults to the file extension)")
	return cmd
}
