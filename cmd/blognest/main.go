package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/blognest/blognest-go/internal/client"
	"github.com/blognest/blognest-go/internal/config"
	"github.com/blognest/blognest-go/internal/crypto"
	"github.com/blognest/blognest-go/internal/repository"
	"github.com/blognest/blognest-go/internal/session"
)

const usage = `Usage: blognest <command> [flags]

Account:
  login      -email -password
  signup     -username -email -password
  logout
  whoami

Reading:
  feed       [-search] [-all]
  categories
  category   -id [-search] [-by title|author]
  mine
  liked
  show       -id

Writing:
  like       -id
  dislike    -id
  unlike     -id
  create     -title -description -body -category
  update     -id [-title] [-description] [-body] [-category]
  delete     -id [-yes]
`

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	api     *client.Client
	session *session.Manager
	in      *bufio.Reader
	out     io.Writer
	closers []func()
}

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger, os.Args[1], os.Args[2:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, name string, args []string) int {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer a.close()

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	if err := cmd(ctx, a, args); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		logger.Debug("command failed", "command", name, "error", err)
		fmt.Fprintln(os.Stderr, "Error:", displayError(err))
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	store, err := a.tokenStore()
	if err != nil {
		a.close()
		return nil, err
	}

	a.api, err = client.New(cfg.APIBaseURL, client.Options{
		Timeout: cfg.RequestTimeout,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		Logger:  logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.session = session.New(store, a.api, session.WithLogger(logger))
	a.closers = append(a.closers, a.session.Close)

	if err := a.session.Initialize(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// tokenStore builds the configured persistence for the access token.
func (a *app) tokenStore() (repository.TokenStore, error) {
	switch a.cfg.TokenStore {
	case "memory":
		return repository.NewMemoryTokenStore(), nil
	case "mysql":
		db, err := repository.NewDB(a.cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("opening token database: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		return repository.NewSQLTokenStore(db), nil
	case "file", "":
		var sealer *crypto.Sealer
		if a.cfg.TokenPassphrase != "" {
			sealer = crypto.NewSealer(a.cfg.TokenPassphrase)
		}
		return repository.NewFileTokenStore(a.cfg.TokenPath, sealer), nil
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q (want file, mysql or memory)", a.cfg.TokenStore)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
