// internal/provider/fake.go
package provider

import (
	"context"
	"fmt"
	"sync"
)

// FakeBackend is an in-process Backend for tests and the local chat REPL.
// Replies are consumed in order; once the script is exhausted the backend
// repeats the last entry. Not safe for sharing across gateways.
type FakeBackend struct {
	BackendName string

	mu       sync.Mutex
	script   []FakeReply
	pos      int
	Requests []*Request
}

// FakeReply is one scripted response or error.
type FakeReply struct {
	Text   string
	Tokens int
	Err    error
}

// NewFake creates a fake backend with a reply script.
func NewFake(name string, script ...FakeReply) *FakeBackend {
	return &FakeBackend{BackendName: name, script: script}
}

func (f *FakeBackend) Name() string { return f.BackendName }

// Complete records the request and returns the next scripted reply.
func (f *FakeBackend) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	if len(f.script) == 0 {
		return nil, fmt.Errorf("%s: no scripted replies", f.BackendName)
	}

	reply := f.script[f.pos]
	if f.pos < len(f.script)-1 {
		f.pos++
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	tokens := reply.Tokens
	if tokens == 0 {
		tokens = len(reply.Text) / 4
	}
	return &Response{Text: reply.Text, TokensUsed: tokens}, nil
}

// CallCount returns how many completions were requested.
func (f *FakeBackend) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
