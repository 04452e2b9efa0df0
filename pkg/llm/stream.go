package llm

// Delta is one incremental unit of a streamed completion.
// An empty Content carries no text and must not be written downstream.
type Delta struct {
	Content string `json:"content"`
}

// Empty reports whether the delta carries no text.
func (d Delta) Empty() bool {
	return d.Content == ""
}

// Stream is an open streamed completion. Callers loop on Next, read each
// unit with Current, check Err once Next returns false, and always Close.
type Stream interface {
	// Next blocks until the next unit is available. It returns false at the
	// end of the stream or on error.
	Next() bool

	// Current returns the unit produced by the last successful Next.
	Current() Delta

	// Err returns the terminal error, or nil if the stream ended cleanly.
	Err() error

	// Close releases the underlying connection.
	Close() error
}
