package service

import "errors"

// Message keys shown to end users. The detailed cause of a failure only ever
// reaches the operator log.
const (
	MsgConnectFailed     = "connectFailed"
	MsgNotRegistered     = "notRegistered"
	MsgWrongPassword     = "wrongPassword"
	MsgLoginError        = "loginError"
	MsgChangeFailed      = "changeFailed"
	MsgPasswordTooLong   = "passwordTooLong"
	MsgMailNotConfigured = "mailNotConfigured"
	MsgSendFailed        = "sendFailed"
	MsgResetFailed       = "resetFailed"
)

// Failure pairs a user-safe message key with the error that caused it.
type Failure struct {
	Msg string
	Err error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Msg
	}
	return f.Msg + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(msg string, err error) *Failure {
	return &Failure{Msg: msg, Err: err}
}

// UserMessage returns the message key to show for err. Errors that are not a
// Failure map to fallback.
func UserMessage(err error, fallback string) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Msg
	}
	return fallback
}

// IsCredentialFailure reports whether err was caused by the credentials
// themselves rather than by the store being unavailable.
func IsCredentialFailure(err error) bool {
	var f *Failure
	if !errors.As(err, &f) {
		return false
	}
	return f.Msg == MsgNotRegistered || f.Msg == MsgWrongPassword
}
