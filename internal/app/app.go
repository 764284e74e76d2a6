package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/bombsimon/logrusr/v2"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

// App holds attributes for the netsync application
type App struct {
	// Viper loads configuration parameters.
	v *viper.Viper
	// Sync waitgroup to wait for running go routines on termination.
	SyncWG *sync.WaitGroup
	// netsync configuration.
	Config *model.Config
	// TermCh is the channel to terminate the app based on a signal
	TermCh chan os.Signal
	// Logger is the app logger
	Logger *logrus.Logger
}

// New returns a new instance of the netsync app.
//
// The NetBox token is required unless requireToken is false, as when simulating.
func New(cfgFile, logLevel string, requireToken bool) (*App, error) {
	app := &App{
		v:      viper.New(),
		Config: model.DefaultConfig(),
		SyncWG: &sync.WaitGroup{},
		Logger: logrus.New(),
		TermCh: make(chan os.Signal, 1),
	}

	if err := app.LoadConfiguration(cfgFile, requireToken); err != nil {
		return nil, err
	}

	// the flag overrides the configured level
	if logLevel != "" {
		app.Config.LogLevel = logLevel
	}

	switch app.Config.LogLevel {
	case "debug":
		app.Logger.Level = logrus.DebugLevel
	case "trace":
		app.Logger.Level = logrus.TraceLevel
	default:
		app.Logger.Level = logrus.InfoLevel
	}

	app.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{}},
	)

	// otel internal errors are logged through the app logger
	otel.SetLogger(logrusr.New(app.Logger))

	// register for SIGINT, SIGTERM
	signal.Notify(app.TermCh, syscall.SIGINT, syscall.SIGTERM)

	return app, nil
}

// CancelOnSignal returns a context cancelled when the app receives a termination signal.
func (a *App) CancelOnSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelFunc := context.WithCancel(ctx)

	a.SyncWG.Add(1)

	go func() {
		defer a.SyncWG.Done()

		select {
		case <-a.TermCh:
			a.Logger.Info("got TERM signal, exiting...")
			cancelFunc()
		case <-ctx.Done():
		}
	}()

	return ctx, cancelFunc
}
