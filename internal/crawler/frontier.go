package crawler

import "github.com/yuki-osaki/marketscan/internal/cache"

// Frontier is the queue of pending requests with URL deduplication.
//
// Push deduplicates on the normalized URL, so a product reachable from
// several search pages is fetched once. Requeue bypasses the seen check
// and puts the request at the head: a retried request must run before
// newly discovered work, and its URL is necessarily already seen.
//
// The frontier is owned by the orchestrator's control goroutine and is
// deliberately not safe for concurrent use.
type Frontier struct {
	// queue holds pending requests in dispatch order.
	queue []Request

	// seen tracks normalized URLs ever pushed, including ones already
	// popped. A URL is crawled at most once per run no matter how often
	// it is discovered.
	seen map[string]bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		seen: make(map[string]bool),
	}
}

// Push appends the request unless its URL was already pushed this run.
// Reports whether the request was accepted.
func (f *Frontier) Push(req Request) bool {
	key := cache.NormalizeURL(req.URL)
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	f.queue = append(f.queue, req)
	return true
}

// Requeue puts a request at the head of the queue, skipping
// deduplication. Used for retries.
func (f *Frontier) Requeue(req Request) {
	f.queue = append([]Request{req}, f.queue...)
}

// Pop removes and returns the request at the head of the queue.
func (f *Frontier) Pop() (Request, bool) {
	if len(f.queue) == 0 {
		return Request{}, false
	}
	req := f.queue[0]
	f.queue = f.queue[1:]
	return req, true
}

// Len returns the number of queued requests.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// Seen reports whether the URL was pushed at any point this run.
func (f *Frontier) Seen(rawURL string) bool {
	return f.seen[cache.NormalizeURL(rawURL)]
}
