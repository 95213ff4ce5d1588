package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/chapterhub/internal/client/client"
	"github.com/dmitrijs2005/chapterhub/internal/client/config"
)

// authService is the gRPC health service name the server registers.
const authService = "chapterhub.auth"

type Mode string

const (
	ModeUnknown  Mode = ""
	ModeOnline   Mode = "online"
	ModeDegraded Mode = "degraded"
	ModeOffline  Mode = "offline"
)

type healthChecker interface {
	Check(ctx context.Context, service string) (bool, error)
	Close() error
}

type App struct {
	config *config.Config
	api    client.API
	health healthChecker
	reader *bufio.Reader
	out    io.Writer

	mu    sync.Mutex
	mode  Mode
	email string
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	hc, err := client.NewHealthChecker(c.GRPCAddr)
	if err != nil {
		return nil, err
	}
	return &App{
		config: c,
		api:    api,
		health: hc,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run executes args as a single command, or starts the REPL when args is
// empty.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.health.Close()

	if len(args) > 0 {
		_, err := dispatch(ctx, a, args[0], args[1:])
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(a.out, "authctl connected to %s (type 'help' for commands)\n", a.config.ServerURL)
	a.probe(ctx)
	go a.StartHealthWatcher(ctx, a.config.HealthCheckInterval)

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Server is %s\n", mode)
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setEmail(email string) {
	a.mu.Lock()
	a.email = email
	a.mu.Unlock()
}

func (a *App) status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := string(a.mode)
	if a.email != "" {
		s = a.email + " " + s
	}
	return s
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	serving, err := a.health.Check(ctx, authService)
	switch {
	case err != nil:
		a.setMode(ModeOffline)
	case !serving:
		a.setMode(ModeDegraded)
	default:
		a.setMode(ModeOnline)
	}
}

// StartHealthWatcher probes the gRPC health endpoint every interval until
// ctx is done.
func (a *App) StartHealthWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
