package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipcraft/internal/config"
	"clipcraft/internal/editor"
	"clipcraft/internal/media"
)

func newEditCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newDedupeCommand(ctx),
		newCaptionsCommand(ctx),
		newMusicCommand(ctx),
		newBrollCommand(ctx),
		newAIEditCommand(ctx),
	}
}

// runEdit executes req against the locked session and prints the artifact.
func runEdit(ctx *commandContext, cmd *cobra.Command, req editor.Request) error {
	if req.AuxiliaryPath != "" {
		path, err := config.ExpandPath(req.AuxiliaryPath)
		if err != nil {
			return err
		}
		req.AuxiliaryPath = path
	}
	return ctx.withEditor(cmd, func(ws *workspace) error {
		out, err := ws.editor.Run(cmd.Context(), req)
		if err != nil {
			return reported(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.ArtifactURL)
		return nil
	})
}

func newDedupeCommand(ctx *commandContext) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := editor.Request{Kind: media.KindDedupe}
			if cmd.Flags().Changed("threshold") {
				req.Params.Threshold = media.Float64(threshold)
			}
			return runEdit(ctx, cmd, req)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Similarity threshold in (0, 1]; omit for the configured default")
	return cmd
}

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var fontSize string

	cmd := &cobra.Command{
		Use:   "captions",
		Short: "Burn in generated captions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := editor.Request{Kind: media.KindCaptions}
			if cmd.Flags().Changed("font-size") {
				req.Params.FontSize = media.ParseFontSize(fontSize)
			}
			return runEdit(ctx, cmd, req)
		},
	}

	cmd.Flags().StringVar(&fontSize, "font-size", "", "Caption font size; non-numeric values fall back to 28")
	return cmd
}

func newMusicCommand(ctx *commandContext) *cobra.Command {
	var file string
	var fileType string
	var volume float64

	cmd := &cobra.Command{
		Use:   "music",
		Short: "Mix a music track under the video",
		Long: "Mix a music track under the current video. --file uploads the track for this\n" +
			"run; without it the session's bound track is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := editor.Request{
				Kind:          media.KindMusic,
				AuxiliaryPath: strings.TrimSpace(file),
				AuxiliaryType: fileType,
			}
			if cmd.Flags().Changed("volume") {
				req.Params.Volume = media.Float64(volume)
			}
			return runEdit(ctx, cmd, req)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Music track to upload (mp3 or wav)")
	cmd.Flags().StringVar(&fileType, "type", "", "Declared content type of --file")
	cmd.Flags().Float64Var(&volume, "volume", 0, "Music volume between 0 and 1")
	return cmd
}

func newBrollCommand(ctx *commandContext) *cobra.Command {
	var keywords string

	cmd := &cobra.Command{
		Use:   "broll",
		Short: "Insert supplemental footage matching keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := editor.Request{Kind: media.KindBroll}
			if cmd.Flags().Changed("keywords") {
				req.Params.Keywords = media.ParseKeywords(keywords)
			}
			return runEdit(ctx, cmd, req)
		},
	}

	cmd.Flags().StringVar(&keywords, "keywords", "", `Comma-separated keywords, e.g. "beach, sunset"`)
	return cmd
}

func newAIEditCommand(ctx *commandContext) *cobra.Command {
	var music string
	var musicType string

	cmd := &cobra.Command{
		Use:   "ai-edit <instruction...>",
		Short: "Edit the video from a natural-language instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := editor.Request{
				Kind:          media.KindAIEdit,
				Params:        media.Params{Instruction: strings.Join(args, " ")},
				AuxiliaryPath: strings.TrimSpace(music),
				AuxiliaryType: musicType,
			}
			return runEdit(ctx, cmd, req)
		},
	}

	cmd.Flags().StringVar(&music, "music", "", "Music track to upload and use for this edit")
	cmd.Flags().StringVar(&musicType, "music-type", "", "Declared content type of --music")
	return cmd
}
