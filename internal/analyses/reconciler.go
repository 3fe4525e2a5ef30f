package analyses

import (
	"context"
	"fmt"
	"time"

	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/shared/telemetry"
	"call-analytics-backend/internal/shared/util"
)

// StaleCutoffs holds, per non-terminal status, the instant before which an analysis
// that has shown no sign of life counts as abandoned.
type StaleCutoffs struct {
	Running time.Time
	Pending time.Time
}

// Stale reports whether a is non-terminal and silent since before its status's cutoff.
func (c StaleCutoffs) Stale(a Analysis) bool {
	switch a.Status {
	case StatusRunning:
		return a.LastBeat().Before(c.Running)
	case StatusPending:
		return a.LastBeat().Before(c.Pending)
	}
	return false
}

// Reconciler moves abandoned analyses to error. An analysis is abandoned when it is
// pending or running, no process is working on it here, and it has shown no sign of life
// for StaleAfter (running) or PendingStaleAfter (pending, defaulting to StaleAfter).
// Queued deployments set a long PendingStaleAfter so backlog is not mistaken for abandonment.
type Reconciler struct {
	Repo              Repo
	StaleAfter        time.Duration
	PendingStaleAfter time.Duration
	Interval          time.Duration
	// Active reports analyses running in this process; they are never flagged.
	Active func(analysisID string) bool
	Now    func() time.Time
}

// Run reconciles every Interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				telemetry.Error("analysis.reconcile_failed", map[string]any{"error": util.SanitizeError(err)})
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many analyses were flagged.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	staleAfter := r.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	pendingAfter := r.PendingStaleAfter
	if pendingAfter <= 0 {
		pendingAfter = staleAfter
	}
	cutoffs := StaleCutoffs{Running: now.Add(-staleAfter), Pending: now.Add(-pendingAfter)}

	stale, err := r.Repo.ListStale(ctx, cutoffs)
	if err != nil {
		return 0, err
	}
	flagged := 0
	for _, a := range stale {
		if r.Active != nil && r.Active(a.ID) {
			continue
		}
		msg := fmt.Sprintf("abandoned: no heartbeat since %s", a.LastBeat().UTC().Format(time.RFC3339))
		ok, err := r.Repo.MarkStale(ctx, a.ID, cutoffs, msg, now)
		if err != nil {
			return flagged, err
		}
		if !ok {
			continue
		}
		flagged++
		telemetry.Warn("analysis.status", map[string]any{
			"analysis_id":       a.ID,
			"status":            StatusError,
			"status_transition": a.Status + "->error",
			"processed_calls":   a.ProcessedCalls,
			"total_calls":       a.TotalCalls,
			"error":             msg,
		})
	}
	if flagged > 0 {
		metrics.IncStaleAnalysesFlagged(flagged)
	}
	return flagged, nil
}
