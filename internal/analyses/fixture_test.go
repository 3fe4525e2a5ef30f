package analyses

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"call-analytics-backend/internal/calls"
	"call-analytics-backend/internal/executor"
	"call-analytics-backend/internal/results"
	local "call-analytics-backend/internal/shared/storage/object/local"
	"call-analytics-backend/internal/templates"
	"call-analytics-backend/internal/transcripts"
)

const okResponse = `{"summary":"calm call","findings":[{"criterion":"tone","value":"calm"}],` +
	`"incidents":[{"type":"verbal_aggression","severity":"high","start_time":1,"end_time":2,"description":"raised voice","quote":"listen"}]}`

// hostileResponse is valid JSON that is not storable as-is: non-finite times, NUL runes, a stray byte.
const hostileResponse = `{"summary":"bad\u0000 day` + "\xfe" + `","findings":[{"criterion":"tone","value":"x\u0000"}],` +
	`"incidents":[{"type":"threat","severity":"high","start_time":"inf","end_time":"inf:00","quote":"or\u0000 else"}]}`

// countingEngine transcribes every call to "hello from <id>" and fails the ids in fail.
type countingEngine struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (e *countingEngine) Name() string { return "fake" }

func (e *countingEngine) Transcribe(ctx context.Context, audio transcripts.Audio) (transcripts.EngineResult, error) {
	e.mu.Lock()
	e.calls[audio.CallID]++
	fail := e.fail[audio.CallID]
	e.mu.Unlock()
	if fail {
		return transcripts.EngineResult{}, errors.New("engine unreachable")
	}
	return transcripts.EngineResult{
		Text: "hello from " + audio.CallID,
		Segments: []transcripts.Segment{
			{Start: 0, End: 3, Speaker: "SPEAKER_00", Text: "hello from " + audio.CallID},
		},
		SpeakerCount: 1,
	}, nil
}

func (e *countingEngine) count(callID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[callID]
}

// scriptedLLM answers by looking for marker call ids in the prompt.
type scriptedLLM struct {
	delay time.Duration
}

func (l scriptedLLM) Query(ctx context.Context, prompt string) (string, error) {
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	switch {
	case strings.Contains(prompt, "c-garbled"):
		return "Sorry, I can only answer in prose.", nil
	case strings.Contains(prompt, "c-offline"):
		return "", errors.New("connection refused")
	case strings.Contains(prompt, "c-panic"):
		panic("model client exploded")
	case strings.Contains(prompt, "c-hostile"):
		return hostileResponse, nil
	}
	return okResponse, nil
}

type fixture struct {
	svc       *Service
	repo      *MemoryRepo
	results   *results.MemoryRepo
	calls     *calls.MemoryRepo
	templates *templates.MemoryRepo
	engine    *countingEngine
}

func newFixture(t *testing.T, callIDs ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	store := local.New(t.TempDir())
	callRepo := calls.NewMemoryRepo()
	for _, id := range callIDs {
		key, size, mime, err := store.Save(ctx, "calls", id+".wav", bytes.NewReader([]byte("RIFF....WAVE")))
		if err != nil {
			t.Fatalf("save audio: %v", err)
		}
		if err := callRepo.Create(ctx, calls.Call{
			ID:         id,
			Filename:   id + ".wav",
			StorageKey: key,
			MimeType:   mime,
			SizeBytes:  size,
			Status:     calls.StatusNew,
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			t.Fatalf("create call: %v", err)
		}
	}

	engine := &countingEngine{calls: map[string]int{}, fail: map[string]bool{}}
	manager := &transcripts.Manager{
		Calls:  callRepo,
		Repo:   transcripts.NewMemoryRepo(),
		Engine: engine,
		Store:  store,
	}
	f := &fixture{
		repo:      NewMemoryRepo(),
		results:   results.NewMemoryRepo(),
		calls:     callRepo,
		templates: templates.NewMemoryRepo(),
		engine:    engine,
	}
	f.svc = &Service{
		Repo:        f.repo,
		Results:     f.results,
		Calls:       callRepo,
		Templates:   f.templates,
		Transcripts: manager,
		Executor:    &executor.Executor{LLM: scriptedLLM{}, Timeout: 5 * time.Second},
		Concurrency: 4,
	}
	return f
}

// submitAndWait submits and blocks until the background run is over.
func (f *fixture) submitAndWait(t *testing.T, in SubmitInput) Analysis {
	t.Helper()
	a, err := f.svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.svc.Wait()
	got, err := f.repo.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	return got
}
