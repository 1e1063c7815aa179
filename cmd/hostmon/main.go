package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostmon/internal/config"
	"hostmon/internal/handlers"
	"hostmon/internal/middleware"
	"hostmon/internal/telemetry"
	"hostmon/internal/version"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

type App struct {
	cfg     config.Config
	store   *telemetry.Store
	metrics *handlers.MetricsHandlers
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if !errors.Is(err, config.ErrInvalidListenAddr) {
			log.Fatalf("Configuration error: %v", err)
		}
		log.Printf("%v. Falling back to default: %s", err, config.DefaultListenAddr)
	}

	configureGin(os.Stdout)

	store := telemetry.NewStore(telemetry.NewSystemProvider(), cfg.RefreshTimeout)
	app := &App{
		cfg:     cfg,
		store:   store,
		metrics: handlers.NewMetricsHandlers(store),
	}

	primeCtx, cancelPrime := context.WithTimeout(context.Background(), time.Duration(telemetry.Count)*cfg.RefreshTimeout)
	store.Prime(primeCtx)
	cancelPrime()

	// Bind before serving so an unusable address fails startup.
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", cfg.ListenAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("hostmon %s listening on %s", version.String(), ln.Addr())
	if err := app.serve(ctx, ln); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server exited")
}

// serve runs the HTTP server on ln until ctx is cancelled, then drains
// in-flight requests for up to the configured shutdown timeout.
func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := newServer(a.cfg, setupRouter(a))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        h,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

// configureGin puts gin in release mode and only colours the access log
// when it is written to a terminal.
func configureGin(out *os.File) {
	gin.SetMode(gin.ReleaseMode)
	if out != nil && term.IsTerminal(int(out.Fd())) {
		gin.ForceConsoleColor()
	} else {
		gin.DisableConsoleColor()
	}
}

func setupRouter(a *App) *gin.Engine {
	r := gin.New()

	// Add recovery middleware
	r.Use(gin.Recovery())

	// Add custom logging middleware
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	a.metrics.Register(r)
	return r
}
