package llm

// ErrorResponse is the JSON body of every non-streaming error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
