package llm

import (
	"context"
	"fmt"
	"sync"
)

// FakeProvider is a scriptable in-memory Provider for tests: each call
// to ChatCompletion pops the next scripted response (or error) off the
// queue, in order. Real HTTP providers are out of scope for this
// module; FakeProvider is the only implementation it ships.
type FakeProvider struct {
	mu        sync.Mutex
	responses []scripted
	calls     []Request
	notify    chan struct{}
	gate      chan struct{}
}

type scripted struct {
	resp Response
	err  error
}

// NewFakeProvider creates a provider with no scripted responses; calls
// beyond the scripted sequence return an error.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

// ScriptResponse appends a successful response to the playback queue.
func (f *FakeProvider) ScriptResponse(content string, usage Usage) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, scripted{resp: Response{Content: content, Usage: usage}})
	return f
}

// ScriptError appends a failing call to the playback queue.
func (f *FakeProvider) ScriptError(err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, scripted{err: err})
	return f
}

// Gate arms a rendezvous: the next ChatCompletion call signals on the
// returned notify channel the instant it starts, then blocks until the
// test sends on the returned release channel. Tests use this to pin a
// worker goroutine mid-call so they can exercise a concurrent Stop or
// Pause without racing it.
func (f *FakeProvider) Gate() (notify <-chan struct{}, release chan<- struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := make(chan struct{})
	g := make(chan struct{})
	f.notify = n
	f.gate = g
	return n, g
}

// ChatCompletion implements Provider.
func (f *FakeProvider) ChatCompletion(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	notify, gate := f.notify, f.gate
	f.notify, f.gate = nil, nil
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if notify != nil {
		close(notify)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return Response{}, &ProviderError{Provider: "fake", Cause: fmt.Errorf("no scripted response left for call %d", len(f.calls))}
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	if next.err != nil {
		return Response{}, &ProviderError{Provider: "fake", Cause: next.err}
	}
	return next.resp, nil
}

// Calls returns every request observed so far, in order.
func (f *FakeProvider) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}
