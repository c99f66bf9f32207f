package client

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	// ErrNetwork matches every [*NetworkError].
	ErrNetwork = errors.New("network failure")
	// ErrAuthRejected matches a [*ServerError] with status 401.
	ErrAuthRejected = errors.New("credentials rejected")
	// ErrUnexpectedResponse is returned when a 2xx body cannot be decoded.
	ErrUnexpectedResponse = errors.New("unexpected response body")
	// ErrInvalidListing wraps every local listing validation failure.
	ErrInvalidListing = errors.New("invalid listing")
)

// NetworkError reports a request that never produced an HTTP response:
// connection refused, DNS failure or timeout.
type NetworkError struct {
	URL     string
	BaseURL string
	Prefix  string
	Err     error
}

func (e *NetworkError) Error() string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = "(empty)"
	}
	return fmt.Sprintf("network failure connecting to %s: %v\ncheck:\n"+
		"  - API URL = %s\n"+
		"  - API prefix = %s\n"+
		"  - the backend is reachable from this device (host, port, firewall)\n"+
		"  - Android emulators reach the host at 10.0.2.2; physical devices need the machine's LAN IP",
		e.URL, e.Err, e.BaseURL, prefix)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Timeout reports whether the request hit its deadline.
func (e *NetworkError) Timeout() bool { return isTimeout(e.Err) }

// ServerError is a non-2xx API response.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server error (%d)", e.Status)
	}
	return e.Detail
}

func (e *ServerError) Is(target error) bool {
	return target == ErrAuthRejected && e.Status == http.StatusUnauthorized
}

// credentialPattern matches server text that rejects a login.
var credentialPattern = regexp.MustCompile(`(?i)401|credentials|invalid|unauthorized`)

const (
	msgBadCredentials = "Incorrect email or password."
	msgGeneric        = "Something went wrong. Please try again."
)

// UserMessage maps err to the inline text shown next to a failed action.
// Network failures keep their configuration guidance, server errors show the
// API's detail (or the status fallback) and local validation errors their reason.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return msgGeneric
	}
	return msg
}

// LoginMessage maps a failed login to the text shown on the login form. A 401,
// or server text mentioning credentials, becomes a fixed message; everything
// else falls back to [UserMessage].
func LoginMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAuthRejected) {
		return msgBadCredentials
	}
	if errors.Is(err, ErrNetwork) {
		return UserMessage(err)
	}
	if credentialPattern.MatchString(err.Error()) {
		return msgBadCredentials
	}
	return UserMessage(err)
}
