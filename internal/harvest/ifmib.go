package harvest

import (
	"bufio"
	"strings"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	FamilySNMPIFMIB = "snmp_ifmib"

	OIDSysDescr                   = "1.3.6.1.2.1.1.1"
	OIDSysName                    = "1.3.6.1.2.1.1.5"
	OIDIfType                     = "1.3.6.1.2.1.2.2.1.3"
	OIDIfAdminStatus              = "1.3.6.1.2.1.2.2.1.7"
	OIDIfName                     = "1.3.6.1.2.1.31.1.1.1.1"
	OIDIfAlias                    = "1.3.6.1.2.1.31.1.1.1.18"
	OIDDot3adAggPortAttachedAggID = "1.2.840.10006.300.43.1.2.1.1.13"

	ifTypeIEEE8023adLag = "161"
	ifAdminStatusUp     = "1"
)

// IFMIB extracts interfaces and LAGs from IF-MIB and IEEE8023-LAG-MIB walks.
//
// Each block holds "OID = value" lines as rendered by the SNMP transport. The device has
// no module bays.
type IFMIB struct{}

func (f *IFMIB) Name() string { return FamilySNMPIFMIB }

func (f *IFMIB) Transport() transport.Kind { return transport.KindSNMP }

func (f *IFMIB) Commands() []string {
	return []string{
		OIDSysName,
		OIDSysDescr,
		OIDIfName,
		OIDIfAlias,
		OIDIfType,
		OIDIfAdminStatus,
		OIDDot3adAggPortAttachedAggID,
	}
}

// Extract builds the inventory, one interface per ifName row.
func (f *IFMIB) Extract(blocks Blocks, classifier Classifier, logger *logrus.Entry) (*model.Inventory, error) {
	hostname := scalar(walkTable(blocks[OIDSysName], OIDSysName))
	if hostname == "" {
		return nil, labelNotFound("sysName")
	}

	deviceType := scalar(walkTable(blocks[OIDSysDescr], OIDSysDescr))
	if deviceType == "" {
		return nil, labelNotFound("sysDescr")
	}

	device, err := classifyDevice(hostname, deviceType, classifier)
	if err != nil {
		return nil, err
	}

	names := walkTable(blocks[OIDIfName], OIDIfName)
	aliases := walkTable(blocks[OIDIfAlias], OIDIfAlias)
	types := walkTable(blocks[OIDIfType], OIDIfType)
	admin := walkTable(blocks[OIDIfAdminStatus], OIDIfAdminStatus)
	attached := walkTable(blocks[OIDDot3adAggPortAttachedAggID], OIDDot3adAggPortAttachedAggID)

	aggregators := map[string]bool{}

	for idx, t := range types {
		if t == ifTypeIEEE8023adLag {
			aggregators[idx] = true
		}
	}

	for idx, agg := range attached {
		if agg != "" && agg != "0" && agg != idx {
			aggregators[agg] = true
		}
	}

	a := newAssembly(device)

	for idx, name := range names {
		if name == "" {
			continue
		}

		enabled := admin[idx] == ifAdminStatusUp

		if aggregators[idx] {
			a.addLag(name, aliases[idx], enabled)
			continue
		}

		a.addPort(name, aliases[idx], enabled)
	}

	for idx, agg := range attached {
		if !aggregators[agg] || agg == idx {
			continue
		}

		lagName, member := names[agg], names[idx]
		if lagName == "" || member == "" {
			continue
		}

		a.addLagMember(lagName, member)
	}

	return a.inventory(classifier, logger.WithField("family", f.Name())), nil
}

// walkTable returns the values of the rendered walk keyed by the index following the table OID.
func walkTable(block, tableOID string) map[string]string {
	rows := map[string]string{}
	prefix := tableOID + "."

	scanner := bufio.NewScanner(strings.NewReader(block))
	for scanner.Scan() {
		oid, value, found := strings.Cut(scanner.Text(), " = ")
		if !found {
			continue
		}

		oid = strings.TrimPrefix(strings.TrimSpace(oid), ".")
		if !strings.HasPrefix(oid, prefix) {
			continue
		}

		rows[strings.TrimPrefix(oid, prefix)] = strings.TrimSpace(value)
	}

	return rows
}

// scalar returns the value of a scalar object walk, instance 0.
func scalar(rows map[string]string) string {
	return rows["0"]
}
