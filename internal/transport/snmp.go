package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SNMP walks the OID subtree given as the command, rendering one "OID = value" line per variable.
type SNMP struct {
	client   *gosnmp.GoSNMP
	attempts int
	open     bool
	logger   *logrus.Entry
}

// NewSNMP returns a v2c SNMP session to host.
func NewSNMP(host string, opts *model.DeviceOptions, logger *logrus.Logger) *SNMP {
	port := opts.SNMPPort
	if port == 0 {
		port = model.DefaultSNMPPort
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = model.DefaultDeviceTimeout
	}

	return &SNMP{
		client: &gosnmp.GoSNMP{
			Target:    host,
			Port:      uint16(port),
			Community: opts.SNMPCommunity,
			Version:   gosnmp.Version2c,
			Timeout:   timeout,
			Retries:   1,
		},
		attempts: opts.ConnectAttempts,
		logger:   logger.WithFields(logrus.Fields{"transport": KindSNMP, "address": host}),
	}
}

// Open prepares the UDP socket to the device.
func (s *SNMP) Open(ctx context.Context) error {
	return connectWithRetries(ctx, s.attempts, s.logger, func(ctx context.Context) error {
		s.client.Context = ctx
		if err := s.client.Connect(); err != nil {
			return err
		}

		s.open = true

		return nil
	})
}

// Run bulk walks the OID.
func (s *SNMP) Run(ctx context.Context, oid string) (string, error) {
	if !s.open {
		return "", errors.Wrap(model.ErrCollection, ErrSessionNotOpen.Error())
	}

	s.client.Context = ctx

	pdus, err := s.client.BulkWalkAll(oid)
	if err != nil {
		return "", errors.Wrap(model.ErrCollection, oid+": "+err.Error())
	}

	return RenderPDUs(pdus), nil
}

// Close closes the UDP socket, it is safe to call on an unopened session.
func (s *SNMP) Close() error {
	if !s.open || s.client.Conn == nil {
		return nil
	}

	s.open = false

	return s.client.Conn.Close()
}

// RenderPDUs formats the variables as "OID = value" lines, OIDs without the leading dot.
func RenderPDUs(pdus []gosnmp.SnmpPDU) string {
	var b strings.Builder

	for _, pdu := range pdus {
		fmt.Fprintf(&b, "%s = %s\n", strings.TrimPrefix(pdu.Name, "."), pduValue(pdu))
	}

	return b.String()
}

func pduValue(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return strings.TrimSpace(string(b))
		}
	case gosnmp.ObjectIdentifier:
		if s, ok := pdu.Value.(string); ok {
			return strings.TrimPrefix(s, ".")
		}
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Counter64, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).String()
	case gosnmp.Null, gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return ""
	}

	return fmt.Sprint(pdu.Value)
}
