package apistub

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reusemarket/gate/client"
	"github.com/reusemarket/gate/internal/rate"
	"github.com/reusemarket/gate/password"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	// ErrEmailTaken is returned by Register for an existing account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail is returned by Register for an implausible address.
	ErrInvalidEmail = errors.New("invalid email")
)

// Register creates an account directly, as POST /auth/register would.
func (s *Server) Register(email, pass string) error {
	_, err := s.createAccount(email, pass)
	return err
}

func (s *Server) createAccount(email, pass string) (client.User, error) {
	email = normalizeEmail(email)
	if len(email) < 4 || !strings.Contains(email, "@") {
		return client.User{}, ErrInvalidEmail
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return client.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return client.User{}, ErrEmailTaken
	}
	acct := account{id: uuid.NewString(), hash: hash}
	s.users[email] = acct

	return client.User{ID: acct.id, Email: email}, nil
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	user, err := s.createAccount(req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmailTaken):
		detail(c, http.StatusConflict, err.Error())
		return
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, password.ErrPasswordTooShort),
		errors.Is(err, password.ErrPasswordTooLong):
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		s.log.Error("apistub.register.fail", slog.String("error", err.Error()))
		detail(c, http.StatusInternalServerError, "could not register")
		return
	}

	s.log.Info("apistub.register.ok", slog.String("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, "email and password are required")
		return
	}
	email := normalizeEmail(req.Email)
	ctx := c.Request.Context()
	ip := c.ClientIP()

	if s.limiter != nil {
		if err := s.limiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				detail(c, http.StatusTooManyRequests, "too many login attempts")
				return
			}
			s.log.Warn("apistub.login.limiter_unavailable", slog.String("error", err.Error()))
		}
	}

	s.mu.RLock()
	acct, known := s.users[email]
	s.mu.RUnlock()

	hash := acct.hash
	if !known {
		hash = s.decoy
	}
	ok, err := s.hasher.Verify(req.Password, hash)
	if err != nil || !ok || !known {
		if s.limiter != nil {
			_ = s.limiter.IncrementLogin(ctx, email, ip)
		}
		detail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if s.limiter != nil {
		_ = s.limiter.ResetLogin(ctx, email)
	}

	tok, err := s.tokens.Issue(acct.id)
	if err != nil {
		s.log.Error("apistub.login.issue_failed", slog.String("error", err.Error()))
		detail(c, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.log.Info("apistub.login.ok", slog.String("user_id", acct.id))
	c.JSON(http.StatusOK, client.LoginResponse{AccessToken: tok, TokenType: "bearer"})
}
