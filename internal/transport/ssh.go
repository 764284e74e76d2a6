package transport

import (
	"context"
	"net"
	"strconv"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/net/proxy"
)

// SSH runs each command on its own exec channel of a single SSH connection.
type SSH struct {
	address    string
	socksProxy string
	attempts   int
	config     *ssh.ClientConfig
	client     *ssh.Client
	logger     *logrus.Entry
}

// NewSSH returns an SSH session to host authenticating with the configured password.
//
// Host keys are not verified unless HostKeyCallback is replaced on the returned session.
func NewSSH(host string, opts *model.DeviceOptions, logger *logrus.Logger) *SSH {
	port := opts.Port
	if port == 0 {
		port = model.DefaultDevicePort
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = model.DefaultDeviceTimeout
	}

	return &SSH{
		address:    net.JoinHostPort(host, strconv.Itoa(port)),
		socksProxy: opts.SocksProxy,
		attempts:   opts.ConnectAttempts,
		config: &ssh.ClientConfig{
			User: opts.Username,
			Auth: []ssh.AuthMethod{
				ssh.Password(opts.Password),
				ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
					answers := make([]string, len(questions))
					for i := range answers {
						answers[i] = opts.Password
					}

					return answers, nil
				}),
			},
			// nolint:gosec // lab devices are rarely provisioned with known host keys
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         timeout,
		},
		logger: logger.WithFields(logrus.Fields{"transport": KindSSH, "address": host}),
	}
}

// SetHostKeyCallback replaces the host key verification callback.
func (s *SSH) SetHostKeyCallback(cb ssh.HostKeyCallback) {
	s.config.HostKeyCallback = cb
}

// Open connects and authenticates to the device.
func (s *SSH) Open(ctx context.Context) error {
	return connectWithRetries(ctx, s.attempts, s.logger, func(ctx context.Context) error {
		client, err := s.dial(ctx)
		if err != nil {
			return err
		}

		s.client = client

		return nil
	})
}

func (s *SSH) dial(ctx context.Context) (*ssh.Client, error) {
	var dialer proxy.ContextDialer = &net.Dialer{Timeout: s.config.Timeout}

	if s.socksProxy != "" {
		d, err := proxy.SOCKS5("tcp", s.socksProxy, nil, proxy.Direct)
		if err != nil {
			return nil, errors.Wrap(err, "socks proxy")
		}

		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("socks proxy dialer does not support contexts")
		}

		dialer = cd
	}

	conn, err := dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, s.address, s.config)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return ssh.NewClient(c, chans, reqs), nil
}

// Run executes the command and returns its combined output.
func (s *SSH) Run(ctx context.Context, command string) (string, error) {
	if s.client == nil {
		return "", errors.Wrap(model.ErrCollection, ErrSessionNotOpen.Error())
	}

	session, err := s.client.NewSession()
	if err != nil {
		return "", errors.Wrap(model.ErrCollection, "new session: "+err.Error())
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}

	done := make(chan result, 1)

	go func() {
		out, errRun := session.CombinedOutput(command)
		done <- result{out, errRun}
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", errors.Wrap(model.ErrCollection, command+": "+ctx.Err().Error())
	case r := <-done:
		if r.err != nil {
			return "", errors.Wrap(model.ErrCollection, command+": "+r.err.Error())
		}

		s.logger.WithField("command", command).Trace("command output received")

		return string(r.out), nil
	}
}

// Close closes the connection, it is safe to call on an unopened session.
func (s *SSH) Close() error {
	if s.client == nil {
		return nil
	}

	err := s.client.Close()
	s.client = nil

	return err
}
