package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipcraft/internal/media"
	"clipcraft/internal/notifications"
	"clipcraft/internal/preflight"
	"clipcraft/internal/session"
)

type sessionView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Primary      *media.AssetHandle `json:"primary,omitempty"`
	OriginalRef  string             `json:"original_ref,omitempty"`
	EffectiveRef string             `json:"effective_ref,omitempty"`
	Auxiliary    *media.AssetHandle `json:"auxiliary,omitempty"`
	Pending      *media.PendingJob  `json:"pending,omitempty"`
	Edits        int                `json:"edits"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type statusReport struct {
	Session sessionView        `json:"session"`
	Checks  []preflight.Result `json:"checks"`
}

func newSessionView(snap session.Snapshot) sessionView {
	view := sessionView{
		ID:           snap.ID,
		Name:         snap.Name,
		OriginalRef:  snap.OriginalRef,
		EffectiveRef: snap.EffectiveRef,
		Auxiliary:    snap.Auxiliary,
		Pending:      snap.Pending,
		Edits:        len(snap.Records),
		UpdatedAt:    snap.UpdatedAt,
	}
	if snap.HasPrimary() {
		primary := snap.Primary
		view.Primary = &primary
	}
	return view
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session and check the processing service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, snap, err := ctx.readSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			var pinger preflight.Pinger
			if client, err := newServiceClient(cfg); err == nil {
				pinger = client
			}
			report := statusReport{
				Session: newSessionView(snap),
				Checks:  preflight.RunAll(cmd.Context(), cfg, pinger),
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			colorize := false
			if f, ok := cmd.OutOrStdout().(*os.File); ok {
				colorize = notifications.IsTerminal(f)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(report, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(report statusReport, colorize bool) string {
	var b strings.Builder
	view := report.Session

	fmt.Fprintln(&b, renderSectionHeader("Session "+view.Name))
	if view.Primary == nil {
		fmt.Fprintln(&b, renderField("Video", "none (run clipcraft upload <file>)"))
	} else {
		fmt.Fprintln(&b, renderField("Video", fmt.Sprintf("%s (%s)", view.Primary.FileName, view.Primary.ID)))
		current := view.EffectiveRef
		if current == "" {
			current = "original"
		}
		fmt.Fprintln(&b, renderField("Current output", current))
	}
	if view.Auxiliary != nil {
		fmt.Fprintln(&b, renderField("Music", fmt.Sprintf("%s (%s)", view.Auxiliary.FileName, view.Auxiliary.ID)))
	}
	fmt.Fprintln(&b, renderField("Edits", fmt.Sprintf("%d", view.Edits)))
	if view.Pending != nil {
		fmt.Fprintln(&b, renderStatusLine("Pending job", statusWarn,
			fmt.Sprintf("%s %s (run clipcraft resume)", view.Pending.Kind.DisplayName(), view.Pending.ID), colorize))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, renderSectionHeader("Checks"))
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(&b, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return b.String()
}
