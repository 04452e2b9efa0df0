package relay

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// Model is the model identifier sent with every completion request
	// (e.g., "gpt-3.5-turbo").
	Model string
}
