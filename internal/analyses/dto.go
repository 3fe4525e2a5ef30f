package analyses

import (
	"time"

	"call-analytics-backend/internal/results"
)

type createAnalysisRequest struct {
	Name              string   `json:"name"`
	QueryText         string   `json:"query_text"`
	TemplateID        string   `json:"template_id"`
	CallIDs           []string `json:"call_ids"`
	ForceRetranscribe bool     `json:"force_retranscribe"`
}

// StatusResponse is the pollable view of an analysis.
type StatusResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	TotalCalls     int        `json:"total_calls"`
	ProcessedCalls int        `json:"processed_calls"`
	ErrorCount     int        `json:"error_count"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	Stale          bool       `json:"stale"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// AnalysisResponse adds the submission details to the status view.
type AnalysisResponse struct {
	StatusResponse
	QueryText         string   `json:"query_text"`
	TemplateID        string   `json:"template_id,omitempty"`
	CallIDs           []string `json:"call_ids"`
	ForceRetranscribe bool     `json:"force_retranscribe"`
}

// ResultResponse is one row of GET /analyses/:id/results.
type ResultResponse struct {
	CallID     string           `json:"call_id"`
	Filename   string           `json:"filename"`
	Status     string           `json:"status"`
	Summary    string           `json:"summary"`
	JSONResult *results.Payload `json:"json_result"`
	Error      string           `json:"error,omitempty"`
}

func toStatusResponse(a Analysis, stale bool) StatusResponse {
	return StatusResponse{
		ID:             a.ID,
		Name:           a.Name,
		Status:         a.Status,
		Progress:       a.Progress,
		TotalCalls:     a.TotalCalls,
		ProcessedCalls: a.ProcessedCalls,
		ErrorCount:     a.ErrorCount,
		ErrorMessage:   a.ErrorMessage,
		Stale:          stale,
		CreatedAt:      a.CreatedAt,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
	}
}

func toAnalysisResponse(a Analysis, stale bool) AnalysisResponse {
	ids := a.CallIDs
	if ids == nil {
		ids = []string{}
	}
	return AnalysisResponse{
		StatusResponse:    toStatusResponse(a, stale),
		QueryText:         a.QueryText,
		TemplateID:        a.TemplateID,
		CallIDs:           ids,
		ForceRetranscribe: a.ForceRetranscribe,
	}
}

func toResultResponse(r results.Result) ResultResponse {
	return ResultResponse{
		CallID:     r.CallID,
		Filename:   r.Filename,
		Status:     r.Status,
		Summary:    r.Summary,
		JSONResult: r.Payload,
		Error:      r.ErrorMessage,
	}
}
