package fixtures

import (
	"github.com/metal-toolbox/netsync/internal/rules"
)

// RulesYAML classifies the simulated SR OS router and the IF-MIB lab switch.
const RulesYAML = `
defaults:
  manufacturer_slug: nokia
roles:
  - pattern: "(?i)-sros-"
    slug: access-switch
  - pattern: "(?i)-leaf-"
    slug: leaf-switch
sites:
  - pattern: "^(?P<site>[A-Za-z]+)-"
    slug_format: "{site}"
    transform: lower
manufacturers:
  - pattern: "(?i)-sros-"
    slug: nokia
  - pattern: "(?i)-leaf-"
    slug: arista
device_types:
  - pattern: "(?i)(7750|7250|7950)\\s+SR"
    slug_format: "nokia-{0}-sr"
  - pattern: "(DCS-[\\w-]+)"
    slug_format: "arista-{0}"
    transform: lower
interface_types:
  physical_default: other
  lag_default: lag
  matches:
    - pattern: "^Ethernet"
      type: 25gbase-x-sfp28
`

// Rules returns the engine compiled from RulesYAML.
func Rules() *rules.Engine {
	engine, err := rules.Parse([]byte(RulesYAML))
	if err != nil {
		panic(err)
	}

	return engine
}
