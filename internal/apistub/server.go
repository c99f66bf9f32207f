package apistub

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reusemarket/gate/client"
	"github.com/reusemarket/gate/internal/rate"
	"github.com/reusemarket/gate/middleware"
	"github.com/reusemarket/gate/password"
	"github.com/reusemarket/gate/token"
)

var (
	// ErrTokensRequired is returned by New without a token manager.
	ErrTokensRequired = errors.New("apistub: token manager is required")
	// ErrHasherRequired is returned by New without a password hasher.
	ErrHasherRequired = errors.New("apistub: password hasher is required")
)

const maxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	Tokens  *token.Manager
	Hasher  *password.Argon2
	Limiter *rate.Limiter
	Logger  *slog.Logger
	// Prefix defaults to client.DefaultPrefix.
	Prefix string
}

type account struct {
	id   string
	hash string
}

type media struct {
	contentType string
	data        []byte
}

// Server holds the fake API's in-memory state.
type Server struct {
	tokens  *token.Manager
	hasher  *password.Argon2
	limiter *rate.Limiter
	log     *slog.Logger
	prefix  string

	// decoy is verified against unknown emails so both paths cost one hash.
	decoy string

	mu       sync.RWMutex
	users    map[string]account
	listings []client.Listing
	media    map[string]media

	engine *gin.Engine
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	if opts.Tokens == nil {
		return nil, ErrTokensRequired
	}
	if opts.Hasher == nil {
		return nil, ErrHasherRequired
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	prefix := strings.TrimRight(opts.Prefix, "/")
	if prefix == "" {
		prefix = client.DefaultPrefix
	}

	decoy, err := opts.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	s := &Server{
		tokens:  opts.Tokens,
		hasher:  opts.Hasher,
		limiter: opts.Limiter,
		log:     opts.Logger,
		prefix:  prefix,
		decoy:   decoy,
		users:   make(map[string]account),
		media:   make(map[string]media),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the gin engine serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.logging())
	engine.MaxMultipartMemory = maxUploadBytes

	engine.GET("/", s.health)
	engine.GET("/media/:name", s.serveMedia)

	api := engine.Group(s.prefix)
	api.GET("/health", s.health)
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.GET("/listings", s.listListings)

	secured := api.Group("")
	secured.Use(middleware.Gin(s.tokens))
	secured.POST("/listings", s.createListing)
	secured.POST("/listings/upload", s.upload)

	return engine
}

func (s *Server) logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("apistub.request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}
