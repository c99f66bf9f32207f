// Command reuse-devapi serves the fake reuse marketplace API for local
// development and manual testing of the session gate.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/reusemarket/gate/internal/apistub"
	"github.com/reusemarket/gate/internal/rate"
	"github.com/reusemarket/gate/password"
	"github.com/reusemarket/gate/token"
)

func main() {
	var (
		addr      = flag.String("addr", ":8000", "listen address")
		redisAddr = flag.String("redis-addr", "", "redis address for login throttling; if empty, REDIS_ADDR env or miniredis is used")
		secret    = flag.String("secret", "", "HS256 signing secret; random when empty")
		ttl       = flag.Duration("token-ttl", time.Hour, "access token lifetime")
		seed      = flag.String("seed-user", "", "register email:password at startup")
		jsonLogs  = flag.Bool("json", false, "log as JSON")
		debug     = flag.Bool("debug", false, "log every request")
	)
	flag.Parse()

	log := newLogger(*jsonLogs, *debug)
	if err := run(log, *addr, *redisAddr, *secret, *ttl, *seed); err != nil {
		log.Error("devapi.fail", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(jsonLogs, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(log *slog.Logger, addr, redisAddr, secret string, ttl time.Duration, seed string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
	}
	var rdb redis.UniversalClient
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Info("devapi.redis", slog.String("backend", "miniredis"), slog.String("addr", redisAddr))
	} else {
		log.Info("devapi.redis", slog.String("backend", "redis"), slog.String("addr", redisAddr))
	}
	rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{redisAddr}})
	defer rdb.Close()

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return err
		}
	}
	tokens, err := token.NewManager(token.Config{
		TTL:           ttl,
		SigningMethod: token.MethodHS256,
		PrivateKey:    key,
		Issuer:        "reuse-devapi",
	})
	if err != nil {
		return err
	}
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := apistub.New(apistub.Options{
		Tokens:  tokens,
		Hasher:  hasher,
		Limiter: rate.New(rdb, rate.DefaultConfig()),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	if seed != "" {
		email, pass, ok := strings.Cut(seed, ":")
		if !ok {
			return errors.New("seed-user must be email:password")
		}
		if err := srv.Register(email, pass); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		log.Info("devapi.seeded", slog.String("email", email))
	}

	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("devapi.listen", slog.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("devapi.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
