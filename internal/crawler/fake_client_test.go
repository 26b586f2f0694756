package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// fakeClient serves canned bodies keyed by path without its query string.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	// failFirst makes the first n calls to a path fail.
	failFirst map[string]int
	delay     time.Duration

	calls       map[string]int
	events      []string
	inFlight    int
	maxInFlight int
}

func newFakeClient(responses map[string]string) *fakeClient {
	return &fakeClient{
		responses: responses,
		failFirst: map[string]int{},
		calls:     map[string]int{},
	}
}

func (f *fakeClient) Get(ctx context.Context, path string) ([]byte, error) {
	key := path
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}

	f.mu.Lock()
	f.calls[key]++
	n := f.calls[key]
	f.events = append(f.events, "start "+key)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.events = append(f.events, "end "+key)
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= f.failFirst[key] {
		return nil, errors.Wrapf(ErrUpstreamUnavailable, "injected failure %d for %s", n, key)
	}
	body, ok := f.responses[key]
	if !ok {
		return nil, errors.Wrapf(ErrUpstreamUnavailable, "status 404 for %s", key)
	}
	return []byte(body), nil
}

func (f *fakeClient) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func noSleep(context.Context, time.Duration) error { return nil }
