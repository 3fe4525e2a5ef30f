package transcripts

import "context"

// Repo stores at most one transcript per call.
type Repo interface {
	Get(ctx context.Context, callID string) (Transcript, error)
	Put(ctx context.Context, t Transcript) error
	// Delete removes the transcript of a call. Deleting a missing transcript is not an error.
	Delete(ctx context.Context, callID string) error
}
