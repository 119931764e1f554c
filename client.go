package keen

import "sync"

// Client binds a project id and write key to a dispatch core. By default
// it holds the process-wide singleton core; WithCore attaches it to a
// private one instead.
//
// Clients are safe for concurrent use. Close releases the hold on the
// shared core and must be called exactly once.
type Client struct {
	projectID string
	writeKey  string

	mu       sync.Mutex
	core     *Core
	ownsHold bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCore attaches the client to a private core instead of the shared
// singleton. The caller keeps ownership of the core.
func WithCore(c *Core) ClientOption {
	return func(cl *Client) {
		cl.core = c
		cl.ownsHold = false
	}
}

// NewClient creates a client for the given project. Without WithCore it
// acquires a hold on the process-wide core, creating it on first use.
func NewClient(projectID, writeKey string, opts ...ClientOption) *Client {
	cl := &Client{projectID: projectID, writeKey: writeKey}
	for _, opt := range opts {
		opt(cl)
	}
	if cl.core == nil {
		cl.core = GetInstance()
		cl.ownsHold = true
	}
	return cl
}

// ProjectID returns the project the client posts to.
func (cl *Client) ProjectID() string { return cl.projectID }

// AddEvent queues one event for asynchronous delivery into the named
// collection. The payload must be a JSON object. AddEvent never blocks
// on the network.
func (cl *Client) AddEvent(eventName, payload string) error {
	cl.mu.Lock()
	core := cl.core
	cl.mu.Unlock()
	if core == nil {
		return ErrClosed
	}
	return core.PostEvent(cl.projectID, cl.writeKey, eventName, payload)
}

// Close detaches the client from its core. If the client holds the
// shared singleton, the hold is released; the core itself shuts down
// when its last holder releases. Close is idempotent.
func (cl *Client) Close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.core == nil {
		return
	}
	if cl.ownsHold {
		ReleaseInstance()
	}
	cl.core = nil
}
