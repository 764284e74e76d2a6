package harvest

import (
	"regexp"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	FamilyNokiaSROS = "nokia_sros"

	CmdSystemInformation = "show system information"
	CmdPortDescription   = "show port description"
	CmdCardDetail        = "show card detail"
	CmdMDA               = "show mda"
	CmdCard              = "show card"
	CmdPort              = "show port"
)

var (
	srosSystemName = regexp.MustCompile(`(?m).*System Name.*: (.*)`)
	srosSystemType = regexp.MustCompile(`(?m).*System Type.*: (.*)`)
	srosSerial     = regexp.MustCompile(`CLEI code\s+\S+\s+\S+\s+\S+\s+\S+\s+\S+\s+(\S+)`)
	srosMDA        = regexp.MustCompile(`(?m)^\s*(\d+)\s+\d+\s+([^\s:]+)?`)
	srosCardName   = regexp.MustCompile(`(Card\s+[A-Fa-f1-9])`)
	srosCardType   = regexp.MustCompile(`[1234ABCD]\s+(\S+)`)
	srosCardBay    = regexp.MustCompile(`(Card\s+[A-Fa-f1-4])`)
	srosProvType   = regexp.MustCompile(`(?m)(^[\d \w.]+ (\w+-\d*\S*) *up|^[\d \w.]+.not provisioned.*\n\W*(\S*))`)
	srosPortDesc   = regexp.MustCompile(`(?i)(\d/\d/.*/\d)\s{4,}(to[\s\-_].*)`)
	srosLagMember  = regexp.MustCompile(`(\d\S+)\s+(?:Up)\s+(?:Yes)\s+(?:Up|Link\s+Up)\s+\d+\s+\d+\s+(\d+)`)
)

// NokiaSROS extracts inventory from Nokia SR OS CLI output.
type NokiaSROS struct{}

func (f *NokiaSROS) Name() string { return FamilyNokiaSROS }

func (f *NokiaSROS) Transport() transport.Kind { return transport.KindSSH }

func (f *NokiaSROS) Commands() []string {
	return []string{
		CmdSystemInformation,
		CmdPortDescription,
		CmdCardDetail,
		CmdMDA,
		CmdCard,
		CmdPort,
	}
}

// Extract builds the inventory.
//
// Module bays are the union of the MDA listing, the card name/card type listing and the
// provisioned type listing. LAG membership comes from the port summary, LAG {id} per bundle.
func (f *NokiaSROS) Extract(blocks Blocks, classifier Classifier, logger *logrus.Entry) (*model.Inventory, error) {
	system := blocks[CmdSystemInformation]

	hostname, err := extractFirst(srosSystemName, system, "System Name")
	if err != nil {
		return nil, err
	}

	deviceType, err := extractFirst(srosSystemType, system, "System Type")
	if err != nil {
		return nil, err
	}

	device, err := classifyDevice(hostname, deviceType, classifier)
	if err != nil {
		return nil, err
	}

	cardDetail := blocks[CmdCardDetail]

	if serials := srosSerial.FindAllStringSubmatch(cardDetail, -1); len(serials) > 0 {
		device.Serial = serials[0][1]
	}

	a := newAssembly(device)

	// provisioned type listing, keyed by bay name
	bays := firstGroups(srosCardBay, cardDetail)

	var provisioned []string
	for _, m := range srosProvType.FindAllStringSubmatch(cardDetail, -1) {
		if m[3] != "" {
			provisioned = append(provisioned, m[3])
		} else {
			provisioned = append(provisioned, m[2])
		}
	}

	for i := 0; i < len(bays) && i < len(provisioned); i++ {
		a.addBay(bays[i])
		a.addModule(bays[i], provisioned[i])
	}

	// card name / card type listing
	names := firstGroups(srosCardName, cardDetail)
	types := firstGroups(srosCardType, blocks[CmdCard])

	for i := 0; i < len(names) && i < len(types); i++ {
		a.addBay(names[i])
		a.addModule(names[i], types[i])
	}

	// slot oriented MDA listing
	for _, m := range srosMDA.FindAllStringSubmatch(blocks[CmdMDA], -1) {
		bay := "MDA " + m[1]

		moduleModel := m[2]
		if moduleModel == "" {
			moduleModel = "mda-slot-" + m[1]
		}

		a.addBay(bay)
		a.addModule(bay, moduleModel)
	}

	for _, m := range srosPortDesc.FindAllStringSubmatch(blocks[CmdPortDescription], -1) {
		a.addPort(m[1], m[2], true)
	}

	for _, m := range srosLagMember.FindAllStringSubmatch(blocks[CmdPort], -1) {
		a.addLagMember("LAG "+m[2], m[1])
	}

	return a.inventory(classifier, logger.WithField("family", f.Name())), nil
}

func firstGroups(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)

	groups := make([]string, 0, len(matches))
	for _, m := range matches {
		groups = append(groups, m[1])
	}

	return groups
}
