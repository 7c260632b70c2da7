// Package server wires the locker controller together: storage, hardware
// driver, registry, background loops and the HTTP API, and runs them until
// a signal or a fatal error stops the process.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/dbx"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/access"
	"github.com/dmitrijs2005/gophlocker/internal/server/actuator"
	"github.com/dmitrijs2005/gophlocker/internal/server/config"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware/console"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware/sim"
	"github.com/dmitrijs2005/gophlocker/internal/server/httpapi"
	"github.com/dmitrijs2005/gophlocker/internal/server/keypad"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/registry"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophlocker/internal/server/sensor"
	"github.com/dmitrijs2005/gophlocker/internal/server/services"
	"github.com/dmitrijs2005/gophlocker/internal/server/snapshot"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the final commit flush.
const shutdownTimeout = 5 * time.Second

// Seams for the process environment.
var (
	stdin  *os.File  = os.Stdin
	stdout io.Writer = os.Stdout
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	metrics   *metrics.Metrics
	db        *sql.DB
	terminal  *console.Terminal
	screen    *hardware.Screen
	registry  *registry.Registry
	api       *httpapi.Server
	monitor   *sensor.Monitor
	keypad    *keypad.Controller
	snapshots *snapshot.Snapshotter
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.NewJSON(stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger, metrics: metrics.New()}
	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return err
	}
	app.db, err = repomanager.Open(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	scheme, err := access.NewScheme(c.CredentialScheme)
	if err != nil {
		return err
	}

	secret := c.SecretKey
	if secret == "" {
		if secret, err = common.MakeRandHexString(32); err != nil {
			return err
		}
		app.logger.Warn(ctx, "no secret key configured, tokens will not survive a restart")
	}

	users := services.NewUserService(app.db, rm, scheme, []byte(secret), app.logger.With("module", "users"))
	if c.SeedDefaults {
		if err := users.EnsureDefaults(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	store := rm.Lockers(app.db)
	recs, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load lockers: %w", err)
	}

	board := sim.NewBoard()
	for _, r := range recs {
		board.LinkDoor(r.ServoChannel, r.SensorChannel)
		board.InitDoor(r.SensorChannel, r.Closed)
	}

	var lines hardware.Board = board
	if c.HardwareDriver == "console" {
		app.terminal, err = console.Open(board, stdin, stdout)
		if err != nil {
			return err
		}
		lines = app.terminal
	}
	app.screen = hardware.NewScreen(lines)

	act := actuator.New(lines, app.screen, actuator.Options{
		Settle:  c.SettleDuration,
		Timeout: c.ActuationTimeout,
		Logger:  app.logger.With("module", "actuator"),
		Metrics: app.metrics,
	})

	app.registry, err = registry.New(recs, act, store, registry.Options{
		Logger:  app.logger.With("module", "registry"),
		Metrics: app.metrics,
	})
	if err != nil {
		return err
	}

	policy := access.NewPolicy(app.registry, rm.Users(app.db), scheme, app.logger.With("module", "access"))
	lockers := services.NewLockerService(app.registry, users, policy, app.logger.With("module", "lockers"))

	app.api = httpapi.NewServer(users, lockers, httpapi.Options{
		Address:     c.EndpointAddrHTTP,
		CORSOrigins: c.CORSOrigins,
		Logger:      app.logger.With("module", "http"),
		Metrics:     app.metrics,
	})
	app.monitor = sensor.New(lines, app.registry, sensor.Options{
		Interval: c.SensorPollInterval,
		Logger:   app.logger.With("module", "sensor"),
		Metrics:  app.metrics,
	})
	app.keypad = keypad.New(lines, app.screen, app.registry, policy, keypad.Options{
		Interval: c.KeypadPollInterval,
		Notice:   c.NoticeDuration,
		Logger:   app.logger.With("module", "keypad"),
		Metrics:  app.metrics,
	})

	if c.S3Bucket != "" {
		client, err := snapshot.NewClient(ctx, snapshot.S3Config{
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		app.snapshots = snapshot.New(app.registry, client, snapshot.Options{
			Bucket:   c.S3Bucket,
			Prefix:   c.S3Prefix,
			Interval: c.SnapshotInterval,
			Logger:   app.logger.With("module", "snapshot"),
			Metrics:  app.metrics,
		})
	}
	return nil
}

// Run starts the API and the background loops and blocks until ctx is
// cancelled, a termination signal arrives or one of them fails. Pending
// commits are flushed before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "lockers", app.registry.Len(), "hardware", app.config.HardwareDriver)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.api.Run(gctx) })
	g.Go(func() error { return app.monitor.Run(gctx) })
	g.Go(func() error { return app.keypad.Run(gctx) })
	if app.snapshots != nil {
		g.Go(func() error { return app.snapshots.Run(gctx) })
	}
	if app.terminal != nil {
		app.terminal.Start(gctx)
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped", "error", err)
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if cerr := app.registry.Close(sctx); cerr != nil {
		app.logger.Warn(ctx, "pending commits dropped", "error", cerr)
	}
	app.close()

	app.logger.Info(ctx, "App stopped")
	return err
}

// close releases the display, the terminal and the database.
func (app *App) close() {
	var errs []error
	if app.screen != nil {
		errs = append(errs, app.screen.Clear())
	}
	if app.terminal != nil {
		errs = append(errs, app.terminal.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Warn(context.Background(), "shutdown", "error", err)
	}
}
