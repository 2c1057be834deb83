package gitx_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/skaphos/gitpost/internal/gitx"
)

// MockRunner implements gitx.Runner for testing. Failures are wrapped in
// *gitx.Error like the real runner so classification sees the scripted
// output text.
type MockRunner struct {
	// Responses maps "dir:args" keys to (output, error) pairs. A key with
	// an empty dir (":args") matches any directory.
	Responses map[string]MockResponse
	// Queues maps keys to response sequences consumed call by call; the
	// last response repeats once the queue is drained. Takes precedence
	// over Responses.
	Queues map[string][]MockResponse

	mu    sync.Mutex
	calls []string
}

type MockResponse struct {
	Output string
	Err    error
}

func (r MockResponse) reply(dir string, args []string) (string, error) {
	if r.Err != nil {
		return r.Output, &gitx.Error{Args: args, Dir: dir, Output: r.Output, Err: r.Err}
	}
	return r.Output, nil
}

func (m *MockRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	joined := strings.Join(args, " ")
	m.mu.Lock()
	m.calls = append(m.calls, dir+":"+joined)
	m.mu.Unlock()

	for _, key := range []string{dir + ":" + joined, ":" + joined} {
		if queue, ok := m.Queues[key]; ok && len(queue) > 0 {
			resp := queue[0]
			if len(queue) > 1 {
				m.Queues[key] = queue[1:]
			}
			return resp.reply(dir, args)
		}
		if resp, ok := m.Responses[key]; ok {
			return resp.reply(dir, args)
		}
	}
	return "", fmt.Errorf("unexpected call: dir=%q args=%v", dir, args)
}

// Calls returns every invocation as "dir:args" in order.
func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CalledWith reports whether any call's args contain the fragment.
func (m *MockRunner) CalledWith(fragment string) bool {
	for _, call := range m.Calls() {
		if strings.Contains(call, fragment) {
			return true
		}
	}
	return false
}
