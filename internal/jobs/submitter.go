package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clipcraft/internal/config"
	"clipcraft/internal/logging"
	"clipcraft/internal/media"
	"clipcraft/internal/services"
	"clipcraft/internal/services/mediaapi"
)

// SubmitAPI is the remote collaborator that accepts job submissions.
type SubmitAPI interface {
	Submit(ctx context.Context, segments []string, payload any) (mediaapi.SubmitResponse, error)
}

// Target names the assets an operation runs against.
type Target struct {
	Primary   media.AssetHandle
	Auxiliary *media.AssetHandle
}

// Defaults are applied to parameters the caller left unset.
type Defaults struct {
	DedupeModel     string
	DedupeThreshold float64
	FontSize        int
	MusicVolume     float64
	Keywords        []string
}

// DefaultsFromConfig reads operation defaults from the [defaults] section.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	if cfg == nil {
		return Defaults{MusicVolume: media.DefaultMusicVolume}
	}
	return Defaults{
		DedupeModel:     cfg.Defaults.DedupeModel,
		DedupeThreshold: cfg.Defaults.DedupeThreshold,
		FontSize:        cfg.Defaults.FontSize,
		MusicVolume:     cfg.Defaults.MusicVolume,
		Keywords:        append([]string(nil), cfg.Defaults.BrollKeywords...),
	}
}

// Submitter builds and sends per-operation job requests.
type Submitter struct {
	api      SubmitAPI
	defaults Defaults
	logger   *slog.Logger
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(api SubmitAPI, defaults Defaults, logger *slog.Logger) *Submitter {
	if strings.TrimSpace(defaults.DedupeModel) == "" {
		defaults.DedupeModel = media.DefaultDedupeModel
	}
	if defaults.FontSize <= 0 {
		defaults.FontSize = media.DefaultFontSize
	}
	if len(defaults.Keywords) == 0 {
		defaults.Keywords = media.DefaultKeywords()
	}
	return &Submitter{api: api, defaults: defaults, logger: logging.NewComponentLogger(logger, "jobs")}
}

// Prepare checks the local preconditions for kind against target and returns
// the parameter snapshot with defaults applied. It never touches the network.
func (s *Submitter) Prepare(kind media.Kind, target Target, params media.Params) (media.Params, error) {
	op := string(kind)
	if !kind.Valid() {
		return media.Params{}, services.Wrap(services.ErrInvalidParameter, "jobs", op, "unknown operation kind", nil)
	}
	if target.Primary.IsZero() {
		return media.Params{}, services.Wrap(services.ErrMissingPrimaryAsset, "jobs", op, "upload a video first", nil)
	}
	out := media.Params{}
	switch kind {
	case media.KindDedupe:
		out.Model = s.defaults.DedupeModel
		switch {
		case params.Threshold != nil:
			if *params.Threshold <= 0 || *params.Threshold > 1 {
				return media.Params{}, services.Wrap(services.ErrInvalidParameter, "jobs", op,
					fmt.Sprintf("threshold %v must be in (0, 1]", *params.Threshold), nil)
			}
			out.Threshold = media.Float64(*params.Threshold)
		case s.defaults.DedupeThreshold > 0:
			out.Threshold = media.Float64(s.defaults.DedupeThreshold)
		}
	case media.KindCaptions:
		out.FontSize = params.FontSize
		if out.FontSize <= 0 {
			out.FontSize = s.defaults.FontSize
		}
	case media.KindMusic:
		if target.Auxiliary == nil || target.Auxiliary.IsZero() {
			return media.Params{}, services.Wrap(services.ErrMissingAuxiliaryAsset, "jobs", op, "upload a music track first", nil)
		}
		volume := s.defaults.MusicVolume
		if params.Volume != nil {
			volume = *params.Volume
		}
		if volume < 0 || volume > 1 {
			return media.Params{}, services.Wrap(services.ErrInvalidParameter, "jobs", op,
				fmt.Sprintf("volume %v must be between 0 and 1", volume), nil)
		}
		out.Volume = media.Float64(volume)
		out.MusicFileID = target.Auxiliary.ID
		out.MusicFileName = target.Auxiliary.FileName
	case media.KindBroll:
		for _, keyword := range params.Keywords {
			if trimmed := strings.TrimSpace(keyword); trimmed != "" {
				out.Keywords = append(out.Keywords, trimmed)
			}
		}
		if len(out.Keywords) == 0 {
			out.Keywords = append([]string(nil), s.defaults.Keywords...)
		}
	case media.KindAIEdit:
		out.Instruction = strings.TrimSpace(params.Instruction)
		if out.Instruction == "" {
			return media.Params{}, services.Wrap(services.ErrEmptyInstruction, "jobs", op, "enter an instruction", nil)
		}
		if target.Auxiliary != nil && !target.Auxiliary.IsZero() {
			out.MusicFileID = target.Auxiliary.ID
			out.MusicFileName = target.Auxiliary.FileName
		}
	}
	return out, nil
}

// Submit validates the request, sends it, and returns the submitted job with
// the canonical parameter snapshot.
func (s *Submitter) Submit(ctx context.Context, kind media.Kind, target Target, params media.Params) (media.Job, media.Params, error) {
	snapshot, err := s.Prepare(kind, target, params)
	if err != nil {
		return media.Job{}, media.Params{}, err
	}
	segments, payload := buildRequest(kind, target.Primary, snapshot)

	op := string(kind)
	resp, err := s.api.Submit(ctx, segments, payload)
	if err != nil {
		return media.Job{}, media.Params{}, services.Wrap(services.ErrTransport, "jobs", op, transportMessage(err, "submission failed"), err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return media.Job{}, media.Params{}, services.Wrap(services.ErrTransport, "jobs", op, msg, nil)
	}
	id := resp.JobID()
	if id == "" {
		return media.Job{}, media.Params{}, services.Wrap(services.ErrMalformedResult, "jobs", op, "response missing task_id", nil)
	}

	logging.WithContext(services.WithJobID(ctx, id), s.logger).Info("job submitted",
		logging.String("route", kind.Route()),
		logging.String("params", snapshot.Summary()),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	return media.Job{ID: id, Kind: kind, Status: media.JobSubmitted, RawStatus: resp.Status}, snapshot, nil
}

func transportMessage(err error, fallback string) string {
	var statusErr *mediaapi.StatusError
	if errors.As(err, &statusErr) && strings.TrimSpace(statusErr.Detail) != "" {
		return statusErr.Detail
	}
	return fallback
}
