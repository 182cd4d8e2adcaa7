package core

// Codes carried by error events. The transport forwards them to clients as is.
const (
	CodeRoomNotFound  = "room_not_found"
	CodeAlreadyJoined = "already_joined"
	CodeNotInRoom     = "not_in_room"
	CodeBadRequest    = "bad_request"
)

var (
	ErrRoomNotFound  = &CoreError{Code: CodeRoomNotFound, Message: "room not found"}
	ErrAlreadyJoined = &CoreError{Code: CodeAlreadyJoined, Message: "already joined"}
	ErrNotInRoom     = &CoreError{Code: CodeNotInRoom, Message: "not in room"}
	ErrBadRequest    = &CoreError{Code: CodeBadRequest, Message: "bad request"}
)

// CoreError is a request the hub refused. The client stays connected.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError with the same code.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	return ok && t.Code == e.Code
}

func (e *CoreError) about(subject string) *CoreError {
	return &CoreError{Code: e.Code, Message: e.Message + ": " + subject}
}
