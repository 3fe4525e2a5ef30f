package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"call-analytics-backend/internal/calls"
	"call-analytics-backend/internal/dashboard"
	"call-analytics-backend/internal/executor"
	"call-analytics-backend/internal/queue"
	"call-analytics-backend/internal/results"
	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/shared/telemetry"
	"call-analytics-backend/internal/shared/util"
	"call-analytics-backend/internal/templates"
	"call-analytics-backend/internal/transcripts"
)

const (
	defaultConcurrency       = 4
	minConcurrency           = 2
	maxConcurrency           = 8
	defaultHeartbeatInterval = 15 * time.Second
	defaultStaleAfter        = 10 * time.Minute
)

// TranscriptSource guarantees a usable transcript for a call.
type TranscriptSource interface {
	EnsureTranscript(ctx context.Context, callID string, force bool) (transcripts.Transcript, error)
}

// QueryRunner runs the analysis query against one transcript.
type QueryRunner interface {
	Run(ctx context.Context, queryText string, t transcripts.Transcript) (executor.Outcome, error)
}

// Service owns the analysis lifecycle: submission, background execution and reads.
type Service struct {
	Repo        Repo
	Results     results.Repo
	Calls       calls.Repo
	Templates   templates.Repo
	Transcripts TranscriptSource
	Executor    QueryRunner
	// Queue, when set, receives submitted analyses instead of running them in this process.
	Queue queue.Client

	Concurrency       int
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	PendingStaleAfter time.Duration

	active sync.Map
	wg     sync.WaitGroup
}

// SubmitInput is a new analysis request.
type SubmitInput struct {
	Name              string
	QueryText         string
	TemplateID        string
	CallIDs           []string
	ForceRetranscribe bool
}

// Submit validates the request, persists a pending analysis and schedules it.
// It never waits for per-call work.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Analysis, error) {
	var issues []Issue
	name := strings.TrimSpace(in.Name)
	queryText := strings.TrimSpace(in.QueryText)
	templateID := strings.TrimSpace(in.TemplateID)

	if templateID != "" {
		tpl, err := s.lookupTemplate(ctx, templateID)
		switch {
		case errors.Is(err, templates.ErrNotFound):
			issues = append(issues, Issue{Field: "template_id", Issue: "not found"})
		case err != nil:
			return Analysis{}, err
		default:
			if queryText == "" {
				queryText = strings.TrimSpace(tpl.QueryText)
			}
			if name == "" {
				name = tpl.Name
			}
		}
	}
	if queryText == "" {
		issues = append(issues, Issue{Field: "query_text", Issue: "required"})
	}

	callIDs := dedupe(in.CallIDs)
	if len(callIDs) == 0 {
		issues = append(issues, Issue{Field: "call_ids", Issue: "at least one call is required"})
	} else {
		found, err := s.Calls.GetMany(ctx, callIDs)
		if err != nil {
			return Analysis{}, err
		}
		for _, id := range callIDs {
			if _, ok := found[id]; !ok {
				issues = append(issues, Issue{Field: "call_ids", Issue: "unknown call " + id})
			}
		}
	}
	if len(issues) > 0 {
		return Analysis{}, &ValidationError{Issues: issues}
	}

	now := time.Now().UTC()
	if name == "" {
		name = "Analysis " + now.Format("2006-01-02 15:04:05")
	}
	analysis := Analysis{
		ID:                uuid.NewString(),
		Name:              name,
		QueryText:         queryText,
		TemplateID:        templateID,
		CallIDs:           callIDs,
		ForceRetranscribe: in.ForceRetranscribe,
		Status:            StatusPending,
		TotalCalls:        len(callIDs),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"analysis_id": analysis.ID,
		"status":      StatusPending,
		"total_calls": analysis.TotalCalls,
	})

	if err := s.dispatch(ctx, analysis.ID); err != nil {
		return Analysis{}, err
	}
	return analysis, nil
}

func (s *Service) lookupTemplate(ctx context.Context, id string) (templates.Template, error) {
	if s.Templates == nil {
		return templates.Template{}, templates.ErrNotFound
	}
	return s.Templates.GetByID(ctx, id)
}

func (s *Service) dispatch(ctx context.Context, analysisID string) error {
	if s.Queue == nil {
		s.wg.Add(1)
		go s.runAsync(telemetry.Detach(ctx), analysisID)
		return nil
	}
	msg := queue.NewMessage(analysisID, telemetry.RequestID(ctx), time.Now())
	if err := s.Queue.Send(ctx, msg); err != nil {
		// The row would otherwise sit in pending until the reconciler notices.
		s.fail(ctx, analysisID, fmt.Errorf("enqueue: %w", err), nil)
		return err
	}
	telemetry.Info("analysis.enqueued", map[string]any{
		"request_id":  msg.RequestID,
		"analysis_id": analysisID,
	})
	return nil
}

func (s *Service) runAsync(ctx context.Context, analysisID string) {
	defer s.wg.Done()
	if err := s.ProcessAnalysis(ctx, analysisID); err != nil {
		telemetry.Error("analysis.process_failed", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"analysis_id": analysisID,
			"error":       util.SanitizeError(err),
		})
	}
}

// Wait blocks until every analysis started in this process by Submit has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// IsActive reports whether this process is currently running the analysis.
func (s *Service) IsActive(analysisID string) bool {
	_, ok := s.active.Load(analysisID)
	return ok
}

// IsStale reports whether a non-terminal analysis has shown no sign of life for longer than
// StaleAfter, or PendingStaleAfter while it is still pending.
func (s *Service) IsStale(a Analysis, now time.Time) bool {
	if a.Terminal() || s.IsActive(a.ID) {
		return false
	}
	return s.cutoffs(now).Stale(a)
}

// ProcessAnalysis runs a pending analysis to a terminal state. Terminal analyses,
// analyses already running elsewhere and analyses already active in this process are skipped,
// so queue redelivery is harmless.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) (err error) {
	if _, loaded := s.active.LoadOrStore(analysisID, struct{}{}); loaded {
		telemetry.Info("analysis.skip", map[string]any{"analysis_id": analysisID, "reason": "active"})
		return nil
	}
	defer s.active.Delete(analysisID)

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return err
	}
	if analysis.Terminal() {
		telemetry.Info("analysis.skip", map[string]any{"analysis_id": analysisID, "reason": analysis.Status})
		return nil
	}

	startedAt := time.Now().UTC()
	if err := s.Repo.MarkRunning(ctx, analysisID, startedAt); err != nil {
		if errors.Is(err, ErrNotPending) {
			telemetry.Info("analysis.skip", map[string]any{"analysis_id": analysisID, "reason": "not_pending"})
			return nil
		}
		return err
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"analysis_id":       analysisID,
		"status":            StatusRunning,
		"status_transition": "pending->running",
	})

	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, analysisID, fmt.Errorf("panic: %v", r), &startedAt)
			err = nil
		}
	}()

	if len(analysis.CallIDs) == 0 {
		s.fail(ctx, analysisID, errors.New("analysis has no calls"), &startedAt)
		return nil
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go s.heartbeat(hbCtx, analysisID)

	known, err := s.Calls.GetMany(ctx, analysis.CallIDs)
	if err != nil {
		s.fail(ctx, analysisID, fmt.Errorf("load calls: %w", err), &startedAt)
		return nil
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency())
	for position, callID := range analysis.CallIDs {
		filename := known[callID].Filename
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic processing call %s: %v", callID, r)
				}
			}()
			return s.processCall(ctx, analysis, position, callID, filename)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			// Already terminal, usually flagged by the reconciler; its status stands.
			telemetry.Warn("analysis.run_superseded", map[string]any{
				"request_id":  telemetry.RequestID(ctx),
				"analysis_id": analysisID,
			})
			return nil
		}
		s.fail(ctx, analysisID, err, &startedAt)
		return nil
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Finish(context.WithoutCancel(ctx), analysisID, StatusCompleted, "", completedAt); err != nil {
		s.fail(ctx, analysisID, fmt.Errorf("finish: %w", err), &startedAt)
		return nil
	}
	final, _ := s.Repo.GetByID(context.WithoutCancel(ctx), analysisID)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDuration(completedAt.Sub(startedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"analysis_id":       analysisID,
		"status":            StatusCompleted,
		"status_transition": "running->completed",
		"processed_calls":   final.ProcessedCalls,
		"error_count":       final.ErrorCount,
		"duration_ms":       float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0,
	})
	return nil
}

// processCall attempts one call and accounts for it. Only storage failures are returned;
// everything that goes wrong with the call itself ends up in its result row.
func (s *Service) processCall(ctx context.Context, analysis Analysis, position int, callID, filename string) error {
	row, failed := s.analyseCall(ctx, analysis, callID)
	now := time.Now().UTC()
	row.ID = uuid.NewString()
	row.AnalysisID = analysis.ID
	row.CallID = callID
	row.Position = position
	row.Filename = filename
	row.CreatedAt = now
	row.UpdatedAt = now

	if err := s.Results.Upsert(ctx, row); err != nil {
		return fmt.Errorf("store result for call %s: %w", callID, err)
	}
	updated, err := s.Repo.RecordCallOutcome(ctx, analysis.ID, failed, now)
	if err != nil {
		return fmt.Errorf("record outcome for call %s: %w", callID, err)
	}
	metrics.IncCallProcessed(row.Status)
	telemetry.Debug("analysis.progress", map[string]any{
		"analysis_id":     analysis.ID,
		"call_id":         callID,
		"result_status":   row.Status,
		"processed_calls": updated.ProcessedCalls,
		"total_calls":     updated.TotalCalls,
		"progress":        updated.Progress,
	})
	return nil
}

func (s *Service) analyseCall(ctx context.Context, analysis Analysis, callID string) (row results.Result, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			row, failed = s.failedRow(analysis.ID, callID, "panic", fmt.Errorf("panic: %v", r)), true
		}
	}()

	t, err := s.Transcripts.EnsureTranscript(ctx, callID, analysis.ForceRetranscribe)
	if err != nil {
		return s.failedRow(analysis.ID, callID, "transcription", err), true
	}

	out, err := s.Executor.Run(ctx, analysis.QueryText, t)
	var perr *executor.ParseError
	switch {
	case errors.As(err, &perr):
		telemetry.Warn("analysis.call.parse_error", map[string]any{
			"analysis_id": analysis.ID,
			"call_id":     callID,
			"reason":      perr.Reason,
		})
	case err != nil:
		return s.failedRow(analysis.ID, callID, "query", err), true
	}
	payload := out.Payload
	return results.Result{Status: out.Status, Summary: out.Summary, Payload: &payload}, false
}

func (s *Service) failedRow(analysisID, callID, stage string, err error) results.Result {
	msg := util.SanitizeError(err)
	telemetry.Warn("analysis.call.failed", map[string]any{
		"analysis_id": analysisID,
		"call_id":     callID,
		"stage":       stage,
		"error":       msg,
	})
	return results.Result{Status: results.StatusFailed, ErrorMessage: msg}
}

func (s *Service) heartbeat(ctx context.Context, analysisID string) {
	ticker := time.NewTicker(s.heartbeatInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Repo.Heartbeat(ctx, analysisID, time.Now().UTC()); err != nil && ctx.Err() == nil {
				telemetry.Warn("analysis.heartbeat_failed", map[string]any{
					"analysis_id": analysisID,
					"error":       util.SanitizeError(err),
				})
			}
		}
	}
}

func (s *Service) fail(ctx context.Context, analysisID string, cause error, startedAt *time.Time) {
	msg := util.SanitizeError(cause)
	completedAt := time.Now().UTC()
	if err := s.Repo.Finish(context.WithoutCancel(ctx), analysisID, StatusError, msg, completedAt); err != nil {
		telemetry.Error("analysis.finish_failed", map[string]any{
			"analysis_id": analysisID,
			"error":       util.SanitizeError(err),
			"cause":       msg,
		})
	}
	metrics.IncAnalysisFailed()
	fields := map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"analysis_id": analysisID,
		"status":      StatusError,
		"error":       msg,
	}
	if startedAt != nil {
		metrics.ObserveAnalysisDuration(completedAt.Sub(*startedAt))
		fields["status_transition"] = "running->error"
		fields["duration_ms"] = float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
	} else {
		fields["status_transition"] = "pending->error"
	}
	telemetry.Error("analysis.status", fields)
}

// Get returns an analysis by ID.
func (s *Service) Get(ctx context.Context, analysisID string) (Analysis, error) {
	if strings.TrimSpace(analysisID) == "" {
		return Analysis{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, analysisID)
}

// List returns analyses newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	return s.Repo.List(ctx, limit, offset)
}

// ListResults returns the result rows of an analysis in submission order.
func (s *Service) ListResults(ctx context.Context, analysisID string) (Analysis, []results.Result, error) {
	analysis, err := s.Get(ctx, analysisID)
	if err != nil {
		return Analysis{}, nil, err
	}
	rows, err := s.Results.List(ctx, analysisID)
	if err != nil {
		return Analysis{}, nil, err
	}
	return analysis, rows, nil
}

// Dashboard aggregates the incidents of an analysis.
func (s *Service) Dashboard(ctx context.Context, analysisID string) (dashboard.Dashboard, error) {
	analysis, rows, err := s.ListResults(ctx, analysisID)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	return dashboard.Build(analysis.Name, rows), nil
}

// Export renders the results of an analysis as an XLSX workbook.
func (s *Service) Export(ctx context.Context, analysisID string) (Analysis, []byte, error) {
	analysis, rows, err := s.ListResults(ctx, analysisID)
	if err != nil {
		return Analysis{}, nil, err
	}
	data, err := results.ExportXLSX(rows)
	if err != nil {
		return Analysis{}, nil, err
	}
	return analysis, data, nil
}

func (s *Service) concurrency() int {
	n := s.Concurrency
	if n <= 0 {
		return defaultConcurrency
	}
	if n < minConcurrency {
		return minConcurrency
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

func (s *Service) heartbeatInterval() time.Duration {
	if s.HeartbeatInterval <= 0 {
		return defaultHeartbeatInterval
	}
	return s.HeartbeatInterval
}

func (s *Service) cutoffs(now time.Time) StaleCutoffs {
	running := s.StaleAfter
	if running <= 0 {
		running = defaultStaleAfter
	}
	pending := s.PendingStaleAfter
	if pending <= 0 {
		pending = running
	}
	return StaleCutoffs{Running: now.Add(-running), Pending: now.Add(-pending)}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
