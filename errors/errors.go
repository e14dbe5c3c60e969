package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrTokenNotFound   = fmt.Errorf("access token not found or already consumed")
	ErrGroupNotFound   = fmt.Errorf("group not found")
	ErrServerNotFound  = fmt.Errorf("server not found")
	ErrJoinRejected    = fmt.Errorf("presence store rejected group join")
	ErrInvalidGroupID  = fmt.Errorf("group id must be a non-negative integer")
	ErrInvalidFrame    = fmt.Errorf("only text frames are accepted")
	ErrQuitRequested   = fmt.Errorf("client requested to quit")
	ErrSessionClosed   = fmt.Errorf("session closed")
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrBackpressure    = fmt.Errorf("outbound buffer full, frame dropped")
	ErrCursorClosed    = fmt.Errorf("replay cursor already released")
	ErrUnknownBroker   = fmt.Errorf("unknown broker kind")
	ErrBusClosed       = fmt.Errorf("message bus closed")
	ErrServerExists    = fmt.Errorf("server id already registered")
	ErrGroupExists     = fmt.Errorf("group already exists")
	ErrTokenMismatch   = fmt.Errorf("group token mismatch")
	ErrGroupFull       = fmt.Errorf("group member limit reached")
)
