package ipc

// Commands served by the owner process.
const (
	CommandStatus      = "status"
	CommandToggle      = "toggle"
	CommandStart       = "start"
	CommandStop        = "stop"
	CommandCancel      = "cancel"
	CommandLive        = "live"
	CommandEdit        = "edit"
	CommandDoneEditing = "done-editing"
	CommandPersist     = "persist"
)

// Request is one client command. Text carries the edited text for "edit".
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Response reports the owner state after handling a request.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Status   string `json:"status,omitempty"`
	Live     string `json:"live,omitempty"`
	Editable string `json:"editable,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
