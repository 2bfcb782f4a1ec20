package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/resdex/resdex/internal/client/config"
	"github.com/resdex/resdex/internal/client/services"
	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type authService interface {
	Register(ctx context.Context, username, fullName string, password []byte) error
	Login(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Username() string
	Ping(ctx context.Context) error
}

type profileOpener interface {
	Open(ctx context.Context, handle string) (*services.ProfileSession, error)
}

type searcher interface {
	Start(ctx context.Context) error
	SetQuery(q string) string
	SetMode(m profile.Mode)
	Mode() profile.Mode
	Query() string
	Close()
}

type App struct {
	config   *config.Config
	auth     authService
	profiles profileOpener
	search   searcher
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer

	mu      sync.Mutex
	mode    Mode
	session *services.ProfileSession
}

// NewApp builds the CLI. records feeds the live search.
func NewApp(c *config.Config, auth authService, profiles profileOpener, records services.RecordStore, logger logging.Logger) *App {
	a := &App{
		config:   c,
		auth:     auth,
		profiles: profiles,
		logger:   logger.With("module", "cli"),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	a.search = services.NewSearch(records, c.SearchDebounce, logger, a.printResults)
	return a
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
		printlnFn(fmt.Sprintf("Switched to %s mode", mode))
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	return a.auth.Username() != ""
}

func (a *App) currentSession() *services.ProfileSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// replaceSession installs ps as the open profile and closes the previous one.
func (a *App) replaceSession(ps *services.ProfileSession) {
	a.mu.Lock()
	prev := a.session
	a.session = ps
	a.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

func (a *App) getStatus() string {
	s := ""
	if u := a.auth.Username(); u != "" {
		s = u + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if ps := a.currentSession(); ps != nil {
		s += " @" + ps.Handle()
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run starts the live search and the connectivity watcher, then runs the REPL
// until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to ResDex CLI (type 'help' for commands)")

	if err := a.search.Start(ctx); err != nil {
		a.logger.Warn(ctx, "live search unavailable", "error", err)
	}
	defer a.search.Close()
	defer a.replaceSession(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	runREPL(ctx, a, a.getStatus, a.reader)

	cancel()
	wg.Wait()
}

// StartOnlineStatusWatcher pings the server every interval and updates the
// connectivity mode until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := a.auth.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
