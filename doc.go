// Package keen implements an asynchronous dispatch-and-retry core for
// telemetry events.
//
// Events are posted fire-and-forget: each post is handed to a bounded
// worker pool that delivers it over HTTP to a collector endpoint. A
// delivery that fails is diverted into a durable retry cache instead of
// being dropped; FlushRetryCache replays cached entries on demand, and
// Flush drains all in-flight work synchronously before restarting the
// pool.
//
// Most applications interact through Client, which binds a project and
// write key to the process-wide singleton Core:
//
//	c := keen.NewClient("project-id", "write-key")
//	defer c.Close()
//	c.AddEvent("purchase", `{"item":"golden widget"}`)
//
// Advanced callers can build a private Core with New and functional
// options to choose the transport, retry store, worker count, and
// middleware.
package keen
