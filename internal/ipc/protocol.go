// Package ipc lets another kaiwa process drive the running chat session over a
// unix socket. Each connection carries one JSON line each way.
package ipc

// Commands understood by a chat session owner.
const (
	CommandStatus   = "status"
	CommandRecord   = "record"
	CommandStop     = "stop"
	CommandCancel   = "cancel"
	CommandLanguage = "language"
	CommandReset    = "reset"
)

type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Language string `json:"language,omitempty"`
	Messages int    `json:"messages,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Fail builds an error response for state.
func Fail(state string, err error) Response {
	return Response{OK: false, State: state, Error: err.Error()}
}
