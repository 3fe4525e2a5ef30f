package queue

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// MessageVersion is the current job message format. Workers reject newer versions.
const MessageVersion = 1

var ErrNoAnalysisID = errors.New("message has no analysis id")

// Message asks a worker to run one analysis. It carries ids only; the worker
// reloads the analysis row so a redelivered message never runs stale inputs.
type Message struct {
	AnalysisID string `json:"analysisId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a job for analysisID at now.
func NewMessage(analysisID, requestID string, now time.Time) Message {
	return Message{
		AnalysisID: strings.TrimSpace(analysisID),
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage refuses jobs without an analysis id; everything else is the worker's call.
func EncodeMessage(msg Message) ([]byte, error) {
	if strings.TrimSpace(msg.AnalysisID) == "" {
		return nil, ErrNoAnalysisID
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a payload without validating it. Unknown fields are ignored
// so older workers can read messages from newer producers of the same version.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
