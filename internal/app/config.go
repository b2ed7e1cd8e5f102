package app

// Config holds runtime wiring options for building the client.
type Config struct {
	Home        string // state directory, e.g. $HOME/.parley
	ServerURL   string // relay websocket URL, e.g. ws://127.0.0.1:8080/ws
	NotaryURL   string // optional attestation service base URL
	HistoryPass string // password for the on-disk history store
	NoHistory   bool   // disable local persistence entirely
}
