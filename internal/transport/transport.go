package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kind is the device transport protocol.
type Kind string

const (
	KindSSH  Kind = "ssh"
	KindSNMP Kind = "snmp"
)

var (
	ErrSessionNotOpen = errors.New("device session is not open")
)

//go:generate mockgen -source transport.go -destination=../fixtures/mock.go -package=fixtures

// Session is an authenticated session to a device returning the raw text output for commands.
type Session interface {
	Open(ctx context.Context) error
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

// New returns an unopened session of the given kind to host.
func New(kind Kind, host string, opts *model.DeviceOptions, logger *logrus.Logger) (Session, error) {
	switch kind {
	case KindSSH:
		return NewSSH(host, opts, logger), nil
	case KindSNMP:
		return NewSNMP(host, opts, logger), nil
	default:
		return nil, errors.Wrap(model.ErrConfiguration, "unsupported transport: "+string(kind))
	}
}

// connectWithRetries invokes connect until it succeeds or attempts are exhausted,
// sleeping with an exponential backoff in between.
func connectWithRetries(ctx context.Context, attempts int, logger *logrus.Entry, connect func(context.Context) error) error {
	if attempts <= 0 {
		attempts = model.DefaultConnectAttempts
	}

	// nolint:gomnd // time duration definitions are clear as is.
	delay := &backoff.Backoff{
		Min:    1 * time.Second,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		err := connect(ctx)
		if err == nil {
			return nil
		}

		attemptstr := fmt.Sprintf("%d/%d", attempt, attempts)

		logger.WithFields(
			logrus.Fields{
				"attempt": attemptstr,
				"err":     err,
			}).Debug("device connect error")

		if attempt >= attempts {
			return errors.Wrapf(model.ErrCollection, "connect attempts: %s, last error: %s", attemptstr, err.Error())
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(model.ErrCollection, ctx.Err().Error())
		case <-time.After(delay.Duration()):
		}
	}
}
