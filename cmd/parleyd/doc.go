// Command parleyd runs the relay: a websocket fanout server that routes
// opaque encrypted frames between room members. It never holds key
// material and cannot read message content.
package main
