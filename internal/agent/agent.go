// Package agent defines the gateway's contract with the underlying
// conversational agent and provides the DeepSeek-backed implementation.
//
// The gateway core depends only on Runner and Stream; concrete adapters are
// swappable and tests use fake fragment producers.
package agent

import (
	"context"
	"sync"
)

// Stream is a lazy, ordered, finite sequence of output fragments produced by
// a running agent. The usual consumption loop is:
//
//	for stream.Next() {
//	    use(stream.Current())
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Fragments are consumed exactly once and never retained by the stream.
type Stream interface {
	// Next blocks until the next fragment is available. It returns false when
	// the sequence is exhausted, whether normally or due to an error.
	Next() bool

	// Current returns the fragment made available by the last call to Next.
	Current() string

	// Err returns the terminal error, if any, once Next has returned false.
	Err() error

	// Close abandons the stream and cancels any in-flight agent work.
	Close() error
}

// Runner executes a single query against the agent. Each Runner instance
// serves exactly one request; no state is shared across requests.
type Runner interface {
	Run(ctx context.Context, query string) (Stream, error)
}

// Factory constructs a fresh Runner per request.
type Factory interface {
	NewRunner() Runner
}

// pipe is a channel-backed Stream fed by a producer goroutine. The producer
// must call fail (at most once, before finish) and then finish; sends after
// the consumer closed the pipe unblock via the pipe context.
type pipe struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan string

	current string

	mu  sync.Mutex
	err error
}

func newPipe(parent context.Context) *pipe {
	ctx, cancel := context.WithCancel(parent)
	return &pipe{
		ctx:    ctx,
		cancel: cancel,
		ch:     make(chan string, 16),
	}
}

// send delivers one fragment to the consumer. It returns false when the
// stream has been closed or the request cancelled, in which case the
// producer should stop.
func (p *pipe) send(text string) bool {
	select {
	case p.ch <- text:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// fail records the terminal error. Only the first error wins.
func (p *pipe) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// finish marks the end of the sequence. The producer must not send or fail
// after calling finish.
func (p *pipe) finish() {
	close(p.ch)
}

func (p *pipe) Next() bool {
	text, ok := <-p.ch
	if !ok {
		p.current = ""
		return false
	}
	p.current = text
	return true
}

func (p *pipe) Current() string {
	return p.current
}

func (p *pipe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pipe) Close() error {
	p.cancel()
	return nil
}
