package domain

import "fmt"

type FetchErrorKind string

const (
	FetchErrNetwork FetchErrorKind = "network"
	FetchErrStatus  FetchErrorKind = "http_status"
	FetchErrDecode  FetchErrorKind = "decode"
	FetchErrSchema  FetchErrorKind = "schema"
)

// FetchError is the only error kind surfaced to the dashboard. It is caught
// at the fetch boundary and rendered next to the last good snapshot; it is
// never fatal.
type FetchError struct {
	Kind    FetchErrorKind
	Message string
}

func (e *FetchError) Error() string {
	return e.Message
}

func NewFetchError(kind FetchErrorKind, format string, args ...interface{}) *FetchError {
	return &FetchError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
