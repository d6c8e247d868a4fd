package editor

import (
	"context"

	"clipcraft/internal/logging"
	"clipcraft/internal/notifications"
	"clipcraft/internal/services"
)

// fail reports err to the reconciler and returns it unchanged.
func (e *Editor) fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	kind := services.KindOf(err)
	logger := logging.WithContext(ctx, e.logger)
	if services.IsLocal(err) {
		logger.Info("operation rejected",
			logging.String("error_kind", string(kind)),
			logging.Error(err),
		)
	} else {
		logging.WarnWithContext(logger, "operation failed", "operation_failed",
			logging.String("error_kind", string(kind)),
			logging.Error(err),
		)
	}
	if rerr := e.reconciler.OnError(ctx, string(kind), services.UserMessage(err)); rerr != nil {
		logging.WarnWithContext(logger, "reconciler error delivery failed", "reconciler_failed", logging.Error(rerr))
	}
	return err
}

func (e *Editor) progress(ctx context.Context, p notifications.Progress) {
	if err := e.reconciler.OnProgress(ctx, p); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "reconciler progress delivery failed", "reconciler_failed",
			logging.String("phase", string(p.Phase)),
			logging.Error(err),
		)
	}
}

func (e *Editor) succeed(ctx context.Context, artifactURL, label string) {
	if err := e.reconciler.OnSuccess(ctx, artifactURL, label); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "reconciler success delivery failed", "reconciler_failed",
			logging.String("label", label),
			logging.Error(err),
		)
	}
}
