package robot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// snapshotLoop periodically checkpoints state until ctx is cancelled.
func (r *Robot) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Checkpoint(ctx); err != nil {
				r.log.Warn("checkpoint failed", "error", err)
			}
		}
	}
}

// Checkpoint writes the current slots to every snapshot store. All stores
// are attempted; failures are joined.
func (r *Robot) Checkpoint(ctx context.Context) error {
	if len(r.deps.Snapshots) == 0 {
		return nil
	}
	data, err := r.container.MarshalSnapshot(r.now())
	if err != nil {
		return err
	}

	var errs []error
	for _, store := range r.deps.Snapshots {
		result := "ok"
		if err := store.SaveSnapshotJSON(ctx, data); err != nil {
			result = "error"
			errs = append(errs, fmt.Errorf("snapshot %s: %w", store.Name, err))
		}
		if m := r.deps.Metrics; m != nil {
			m.SnapshotsWritten.WithLabelValues(store.Name, result).Inc()
		}
	}
	if len(errs) == 0 {
		r.log.Info("checkpoint saved", "symbols", r.container.Len(), "bytes", len(data))
	}
	return errors.Join(errs...)
}
