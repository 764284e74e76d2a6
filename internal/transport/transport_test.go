package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard

	return l
}

// startSSHServer serves canned exec output for the commands given, returning the listen address.
func startSSHServer(t *testing.T, outputs map[string]string) (host string, port int) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.Nil(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.Nil(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "admin" && string(pass) == "secret" {
				return nil, nil
			}

			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)

	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, errAccept := ln.Accept()
			if errAccept != nil {
				return
			}

			go serveSSH(conn, cfg, outputs)
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.Nil(t, err)

	port, err = strconv.Atoi(p)
	require.Nil(t, err)

	return h, port
}

func serveSSH(conn net.Conn, cfg *ssh.ServerConfig, outputs map[string]string) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}

	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}

		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}

		go func() {
			defer ch.Close()

			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}

				var payload struct{ Command string }
				_ = ssh.Unmarshal(req.Payload, &payload)
				_ = req.Reply(true, nil)

				status := uint32(0)

				out, ok := outputs[payload.Command]
				if !ok {
					status = 1
					out = "invalid command"
				}

				_, _ = io.WriteString(ch, out)
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))

				return
			}
		}()
	}
}

func Test_SSHSession(t *testing.T) {
	host, port := startSSHServer(t, map[string]string{
		"show system information": "System Name : SIM-SROS-01\n",
		"show port":               "1/1/1 Up Yes Up 9212 9212 1\n",
	})

	opts := &model.DeviceOptions{
		Username:        "admin",
		Password:        "secret",
		Port:            port,
		ConnectAttempts: 1,
	}

	session := NewSSH(host, opts, testLogger())
	ctx := context.Background()

	_, err := session.Run(ctx, "show port")
	assert.ErrorIs(t, err, model.ErrCollection)

	require.Nil(t, session.Open(ctx))

	out, err := session.Run(ctx, "show system information")
	assert.Nil(t, err)
	assert.Equal(t, "System Name : SIM-SROS-01\n", out)

	// one exec channel per command over the same connection
	out, err = session.Run(ctx, "show port")
	assert.Nil(t, err)
	assert.Contains(t, out, "1/1/1")

	_, err = session.Run(ctx, "show bogus")
	assert.ErrorIs(t, err, model.ErrCollection)

	assert.Nil(t, session.Close())
	assert.Nil(t, session.Close())
}

func Test_SSHSessionAuthFailure(t *testing.T) {
	host, port := startSSHServer(t, nil)

	opts := &model.DeviceOptions{
		Username:        "admin",
		Password:        "wrong",
		Port:            port,
		ConnectAttempts: 1,
	}

	err := NewSSH(host, opts, testLogger()).Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCollection)
	assert.Contains(t, err.Error(), "connect attempts: 1/1")
}

func Test_ConnectWithRetries(t *testing.T) {
	logger := testLogger().WithField("test", true)

	calls := 0
	err := connectWithRetries(context.Background(), 2, logger, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("refused")
		}

		return nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls = 0
	err = connectWithRetries(ctx, 5, logger, func(context.Context) error {
		calls++
		return errors.New("refused")
	})

	assert.ErrorIs(t, err, model.ErrCollection)
	assert.Equal(t, 1, calls)
}

func Test_New(t *testing.T) {
	opts := &model.DeviceOptions{}

	s, err := New(KindSSH, "192.0.2.1", opts, testLogger())
	assert.Nil(t, err)
	assert.IsType(t, &SSH{}, s)
	assert.Equal(t, "192.0.2.1:22", s.(*SSH).address)

	s, err = New(KindSNMP, "192.0.2.1", opts, testLogger())
	assert.Nil(t, err)
	assert.IsType(t, &SNMP{}, s)
	assert.Equal(t, uint16(161), s.(*SNMP).client.Port)

	_, err = New("telnet", "192.0.2.1", opts, testLogger())
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func Test_RenderPDUs(t *testing.T) {
	pdus := []gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("SIM-SROS-01 ")},
		{Name: ".1.3.6.1.2.1.2.2.1.7.1", Type: gosnmp.Integer, Value: 1},
		{Name: ".1.3.6.1.2.1.1.2.0", Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.6527.1.3.4"},
		{Name: ".1.3.6.1.2.1.1.3.0", Type: gosnmp.TimeTicks, Value: uint32(4200)},
		{Name: ".1.3.6.1.2.1.1.9.0", Type: gosnmp.NoSuchInstance, Value: nil},
	}

	want := "1.3.6.1.2.1.1.5.0 = SIM-SROS-01\n" +
		"1.3.6.1.2.1.2.2.1.7.1 = 1\n" +
		"1.3.6.1.2.1.1.2.0 = 1.3.6.1.4.1.6527.1.3.4\n" +
		"1.3.6.1.2.1.1.3.0 = 4200\n" +
		"1.3.6.1.2.1.1.9.0 = \n"

	assert.Equal(t, want, RenderPDUs(pdus))
}

func Test_SNMPRunUnopened(t *testing.T) {
	s := NewSNMP("192.0.2.1", &model.DeviceOptions{}, testLogger())

	_, err := s.Run(context.Background(), "1.3.6.1.2.1.1.5")
	assert.ErrorIs(t, err, model.ErrCollection)
	assert.Nil(t, s.Close())
}
