package dispatch

const jsonRPCVersion = "2.0"

const (
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeForbidden       = -32003
	CodeUpstreamFailure = -32000
)

type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      any            `json:"id"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func methodNotFound(raw string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "unsupported method: " + raw}
}

func invalidParams(message string) *Error {
	return &Error{Code: CodeInvalidParams, Message: message}
}

func forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func upstreamFailure(err error) *Error {
	return &Error{Code: CodeUpstreamFailure, Message: err.Error()}
}
