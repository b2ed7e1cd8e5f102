// Package commands defines the parley CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - chat         Join a room and chat interactively
//   - fingerprint  Print this session's key fingerprint
//
// # Implementation
//
// The root command builds the dependency graph (key store, cipher,
// websocket transport, session controller) before any subcommand runs.
// Identities are per-connection: the relay assigns one on connect, and
// keys live only for the lifetime of the process.
package commands
