package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base  string
		parts []string
		want  string
	}{
		{"http://h:8000", []string{"/api", "auth/login"}, "http://h:8000/api/auth/login"},
		{"http://h:8000/", []string{"/api/", "/auth/login"}, "http://h:8000/api/auth/login"},
		{"http://h:8000", []string{"", "health"}, "http://h:8000/health"},
		{"http://h:8000", []string{"api", "listings", "upload"}, "http://h:8000/api/listings/upload"},
	}
	for _, tc := range tests {
		if got := joinURL(tc.base, tc.parts...); got != tc.want {
			t.Fatalf("joinURL(%q, %q) = %q, want %q", tc.base, tc.parts, got, tc.want)
		}
	}
}

func TestNewTrimsPrefixSlash(t *testing.T) {
	c := New("http://h/", WithPrefix("/v1/"))
	if c.Prefix() != "/v1" {
		t.Fatalf("expected trimmed prefix, got %q", c.Prefix())
	}
	if c.URL("auth/login") != "http://h/v1/auth/login" {
		t.Fatalf("unexpected url %q", c.URL("auth/login"))
	}
}

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if _, err := uuid.Parse(r.Header.Get("X-Request-ID")); err != nil {
			t.Errorf("expected uuid request id, got %q", r.Header.Get("X-Request-ID"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["email"] != "ana@reuse.dev" || body["password"] != "secret1" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(StaticToken("should-not-be-sent")))
	resp, err := c.Login(context.Background(), "ana@reuse.dev", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken != "tok-1" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "ana@reuse.dev", "wrong-pass")
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected, got %v", err)
	}
	if errors.Is(err, ErrNetwork) {
		t.Fatalf("401 must not be classified as a network failure")
	}
	if LoginMessage(err) != msgBadCredentials {
		t.Fatalf("unexpected login message %q", LoginMessage(err))
	}
}

func TestLoginEmptyTokenIsUnexpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "ana@reuse.dev", "secret1")
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
	}
}

func TestServerErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"email already registered"}`, "email already registered"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"]}]}`, `[{"loc":["body","email"]}]`},
		{"json without detail", http.StatusInternalServerError, `{"error": "boom"}`, `{"error":"boom"}`},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", "login failed (500)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Login(context.Background(), "ana@reuse.dev", "secret1")
			var se *ServerError
			if !errors.As(err, &se) {
				t.Fatalf("expected ServerError, got %T %v", err, err)
			}
			if se.Status != tc.status {
				t.Fatalf("status = %d, want %d", se.Status, tc.status)
			}
			if se.Detail != tc.want {
				t.Fatalf("detail = %q, want %q", se.Detail, tc.want)
			}
		})
	}
}

func TestNetworkErrorIncludesURLAndGuidance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := New(base).Login(context.Background(), "ana@reuse.dev", "secret1")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, base+"/api/auth/login") {
		t.Fatalf("expected url in message: %s", msg)
	}
	if !strings.Contains(msg, "API URL = "+base) {
		t.Fatalf("expected configuration guidance in message: %s", msg)
	}
	if UserMessage(err) != msg {
		t.Fatalf("network errors are shown verbatim")
	}
}

func TestRequestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Login(context.Background(), "ana@reuse.dev", "secret1")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !ne.Timeout() {
		t.Fatalf("expected timeout, got %v", ne.Err)
	}
}

func TestRegisterConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"email already registered"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Register(context.Background(), "ana@reuse.dev", "secret1")
	var se *ServerError
	if !errors.As(err, &se) || se.Status != http.StatusConflict {
		t.Fatalf("expected 409 ServerError, got %v", err)
	}
	if errors.Is(err, ErrAuthRejected) {
		t.Fatalf("409 must not match ErrAuthRejected")
	}
}

func TestPingFallsBackToRoot(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if !New(srv.URL).Ping(context.Background()) {
		t.Fatalf("expected ping to succeed through root candidate")
	}
	if hits.Load() != 2 {
		t.Fatalf("expected two candidates tried, got %d", hits.Load())
	}
}

func TestPingHealthFirst(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	}))
	defer srv.Close()

	if !New(srv.URL).Ping(context.Background()) {
		t.Fatalf("expected ping to succeed")
	}
	if len(paths) != 1 || paths[0] != "/api/health" {
		t.Fatalf("unexpected candidates %v", paths)
	}
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	if New(base, WithPingTimeout(100*time.Millisecond)).Ping(context.Background()) {
		t.Fatalf("expected ping to fail")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ServerError{Status: 400, Detail: "Invalid categoryId"}, "Invalid categoryId"},
		{&ServerError{Status: 401, Detail: "Invalid token"}, "Invalid token"},
		{&ServerError{Status: 500, Detail: "database offline"}, "database offline"},
		{&ServerError{Status: 502}, "server error (502)"},
		{errors.New("   "), msgGeneric},
	}
	for _, tc := range tests {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestLoginMessage(t *testing.T) {
	netErr := &NetworkError{URL: "http://h/api/auth/login", BaseURL: "http://h", Prefix: "/api", Err: errors.New("refused")}
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ServerError{Status: 401, Detail: "whatever"}, msgBadCredentials},
		{&ServerError{Status: 400, Detail: "Invalid credentials"}, msgBadCredentials},
		{&ServerError{Status: 403, Detail: "Unauthorized device"}, msgBadCredentials},
		{&ServerError{Status: 500, Detail: "database offline"}, "database offline"},
		{netErr, netErr.Error()},
		{errors.New("   "), msgGeneric},
	}
	for _, tc := range tests {
		if got := LoginMessage(tc.err); got != tc.want {
			t.Fatalf("LoginMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
