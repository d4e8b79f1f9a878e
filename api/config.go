package api

// Config holds configuration for the API server.
type Config struct {
	// ListenAddr is the address the server listens on (e.g. ":8005").
	ListenAddr string
}
