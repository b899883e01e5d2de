package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookreport-backend/internal/llm"
	"bookreport-backend/internal/queue"
)

type fakeSynth struct {
	mu        sync.Mutex
	calls     int
	prompts   []string
	maxTokens []int
	respond   func(call int) (string, error)
}

func (f *fakeSynth) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, prompt)
	f.maxTokens = append(f.maxTokens, maxOutputTokens)
	respond := f.respond
	f.mu.Unlock()
	return respond(call)
}

func (f *fakeSynth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSynth) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func replying(text string) *fakeSynth {
	return &fakeSynth{respond: func(int) (string, error) { return text, nil }}
}

func failingWith(kind llm.Kind, msg string) *fakeSynth {
	return &fakeSynth{respond: func(int) (string, error) {
		return "", &llm.Error{Provider: "test", Kind: kind, Err: errString(msg)}
	}}
}

type errString string

func (e errString) Error() string { return string(e) }

// testClock advances one second on every read so creation order is stable.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *delayRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type recordingQueue struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

type testEnv struct {
	svc    *Service
	repo   *MemoryRepo
	synth  *fakeSynth
	sleeps *delayRecorder
	clock  *testClock
}

func newTestEnv(t *testing.T, synth *fakeSynth) *testEnv {
	t.Helper()
	repo := NewMemoryRepo()
	sleeps := &delayRecorder{}
	clock := newTestClock()
	svc := &Service{
		Repo:        repo,
		Synthesizer: synth,
		Provider:    "test",
		Retry: llm.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Sleep:       sleeps.Sleep,
		},
		Now: clock.Now,
	}
	return &testEnv{svc: svc, repo: repo, synth: synth, sleeps: sleeps, clock: clock}
}

func duneRequest() SubmitRequest {
	return SubmitRequest{
		CustomerEmail: "a@b.com",
		BookTitle:     "Dune",
		Author:        "Frank Herbert",
		GradeLevel:    "high-school",
		Length:        1000,
	}
}

func (e *testEnv) submit(t *testing.T, req SubmitRequest) Submission {
	t.Helper()
	sub, err := e.svc.Submit(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return sub
}
