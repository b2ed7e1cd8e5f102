// Package transport provides the websocket implementation of
// domain.Transport used by the client. One goroutine reads the socket and
// dispatches frames to registered handlers serially, so handler code never
// needs cross-event locking for its own state. Connection loss is
// surfaced through the disconnect callback; there is no automatic
// reconnect loop at this layer.
package transport
