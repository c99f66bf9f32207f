package apistub

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/reusemarket/gate/client"
	"github.com/reusemarket/gate/internal/rate"
	"github.com/reusemarket/gate/password"
	"github.com/reusemarket/gate/token"
)

const testCategory = "64b7f0c2a1b2c3d4e5f60718"

func init() {
	gin.SetMode(gin.TestMode)
}

func testHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func testTokens(t *testing.T) *token.Manager {
	t.Helper()
	m, err := token.NewManager(token.Config{
		TTL:           time.Hour,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("apistub-test-secret-0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func newTestServer(t *testing.T, limiter *rate.Limiter) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Options{Tokens: testTokens(t), Hasher: testHasher(t), Limiter: limiter})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any, bearer string) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Hasher: testHasher(t)}); err != ErrTokensRequired {
		t.Fatalf("expected ErrTokensRequired, got %v", err)
	}
	if _, err := New(Options{Tokens: testTokens(t)}); err != ErrHasherRequired {
		t.Fatalf("expected ErrHasherRequired, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)
	for _, path := range []string{"/api/health", "/"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	_, ts := newTestServer(t, nil)
	cred := map[string]string{"email": "Ana@Reuse.dev", "password": "secret1"}

	if resp := postJSON(t, ts.URL+"/api/auth/register", cred, ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts.URL+"/api/auth/register", cred, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}

	resp := postJSON(t, ts.URL+"/api/auth/login", map[string]string{"email": "ana@reuse.dev", "password": "secret1"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var out client.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		t.Fatalf("login body: %+v (%v)", out, err)
	}

	resp = postJSON(t, ts.URL+"/api/auth/login", map[string]string{"email": "ana@reuse.dev", "password": "wrong-pass"}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/api/auth/login", map[string]string{"email": "nobody@reuse.dev", "password": "secret1"}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/api/auth/register", map[string]string{"email": "ana@reuse.dev", "password": "12345"}, "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestLoginThrottled(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := rate.DefaultConfig()
	cfg.MaxLoginAttempts = 2
	_, ts := newTestServer(t, rate.New(rdb, cfg))

	bad := map[string]string{"email": "ana@reuse.dev", "password": "wrong-pass"}
	for i := 0; i < 2; i++ {
		if resp := postJSON(t, ts.URL+"/api/auth/login", bad, ""); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}
	if resp := postJSON(t, ts.URL+"/api/auth/login", bad, ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after budget, got %d", resp.StatusCode)
	}
}

func TestCreateListingRequiresBearer(t *testing.T) {
	s, ts := newTestServer(t, nil)
	in := client.ListingInput{Title: "Bike", Description: "Used", Price: 10, Stock: 1, CategoryID: testCategory}

	if resp := postJSON(t, ts.URL+"/api/listings", in, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	tok, _ := s.tokens.Issue("user-1")
	resp := postJSON(t, ts.URL+"/api/listings", in, tok)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var l client.Listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(l.ID) != 24 || l.Status != client.StatusActive {
		t.Fatalf("unexpected listing %+v", l)
	}

	in.Title = "x"
	if resp := postJSON(t, ts.URL+"/api/listings", in, tok); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short title, got %d", resp.StatusCode)
	}
}

func TestUploadServesMedia(t *testing.T) {
	s, ts := newTestServer(t, nil)
	tok, _ := s.tokens.Issue("user-1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="a.png"`)
	h.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(h)
	_, _ = part.Write([]byte("png-bytes"))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/listings/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var urls []string
	if err := json.NewDecoder(resp.Body).Decode(&urls); err != nil || len(urls) != 1 {
		t.Fatalf("expected one url, got %v (%v)", urls, err)
	}

	media, err := http.Get(urls[0])
	if err != nil {
		t.Fatalf("GET media: %v", err)
	}
	defer media.Body.Close()
	if media.StatusCode != http.StatusOK || media.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected media response %d %q", media.StatusCode, media.Header.Get("Content-Type"))
	}
}

func TestClientAgainstStub(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	anon := client.New(ts.URL)
	if !anon.Ping(ctx) {
		t.Fatal("expected ping to succeed")
	}
	if _, err := anon.Register(ctx, "ana@reuse.dev", "secret1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := anon.Login(ctx, "ana@reuse.dev", "nope-nope")
	if got := client.LoginMessage(err); got != "Incorrect email or password." {
		t.Fatalf("unexpected user message %q for %v", got, err)
	}

	resp, err := anon.Login(ctx, "ana@reuse.dev", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	authed := client.New(ts.URL, client.WithTokenSource(client.StaticToken(resp.AccessToken)))
	l, err := authed.CreateListing(ctx, client.ListingInput{
		Title: "  Lamp ", Description: "Desk lamp", Price: 5, Stock: 1, CategoryID: testCategory,
	})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	if l.Title != "Lamp" {
		t.Fatalf("expected trimmed title, got %q", l.Title)
	}

	if _, err := anon.CreateListing(ctx, client.ListingInput{
		Title: "Lamp", Description: "Desk lamp", CategoryID: testCategory,
	}); !errorsIsAuthRejected(err) {
		t.Fatalf("expected auth rejection without token, got %v", err)
	}
}

func TestRegisterDirect(t *testing.T) {
	s, _ := newTestServer(t, nil)
	if err := s.Register("ana@reuse.dev", "secret1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(" ANA@reuse.dev", "secret1"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := s.Register("x", "secret1"); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}
