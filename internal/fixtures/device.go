package fixtures

// Raw Nokia SR OS CLI output of a 7750 SR-7 with one IOM, one CPM and one MDA.
const (
	SROSSystemInformation = `
===============================================================================
System Information
===============================================================================
System Name            : SIM-SROS-01
System Type            : 7750 SR-7
Chassis Topology       : Standalone
System Version         : B-22.10.R1
System Contact         : noc@example.net
System Location        : lab rack 4
System Up Time         : 12 days, 03:14:07.42 (hr:min:sec)
===============================================================================
`

	SROSPortDescription = `
===============================================================================
Port Descriptions on Slot 1
===============================================================================
Port Id          Description
-------------------------------------------------------------------------------
1/1/c1/1         to-core-01 ge-0/0/1
1/1/c2/1         to_core-02 uplink
1/1/c3/1         10-Gig Ethernet
===============================================================================
`

	SROSCardDetail = `
===============================================================================
Card 1
===============================================================================
Slot      Provisioned Type                         Admin Operational   Comments
              Equipped Type (if different)         State State
-------------------------------------------------------------------------------
1         iom4-e                                   up    up

IOM Card Specific Data
    Clock source                  : none
Hardware Data
    Platform type                 : 7750
    Part number                   : 3HE10491AARA01
    CLEI code                     : IPUCBJVDAA
    Serial number                 : NS1234567890
===============================================================================
Card A
===============================================================================
Slot      Provisioned Type                         Admin Operational   Comments
              Equipped Type (if different)         State State
-------------------------------------------------------------------------------
A         cpm-x20                                  up    up/active

CPM Card Specific Data
    Clock source                  : none
Hardware Data
    Platform type                 : 7750
    Part number                   : 3HE11234AARA01
    CLEI code                     : IPUCBK3DAA
    Serial number                 : NS0987654321
===============================================================================
`

	SROSMDA = `
===============================================================================
MDA Summary
===============================================================================
Slot  Mda   Provisioned Type                            Admin     Operational
                Equipped Type (if different)            State     State
-------------------------------------------------------------------------------
1     1     me12-100gb-qsfp28                           up        up
===============================================================================
`

	SROSCard = `
===============================================================================
Card Summary
===============================================================================
Slot      Provisioned Type                         Admin Operational   Comments
              Equipped Type (if different)         State State
-------------------------------------------------------------------------------
1         iom4-e                                   up    up
A         cpm-x20                                  up    up/active
===============================================================================
`

	SROSPort = `
===============================================================================
Ports on Slot 1
===============================================================================
Port          Admin Link Port    Cfg  Oper LAG/ Port Port Port   C/QS/S/XFP/
Id            State      State   MTU  MTU  Bndl Mode Encp Type   MDIMDX
-------------------------------------------------------------------------------
1/1/c1        Up         Link Up                          conn   100GBASE-LR4
1/1/c1/1      Up    Yes  Up      9212 9212    1 netw null xcme
1/1/c2/1      Up    Yes  Up      9212 9212    1 netw null xcme
1/1/c3/1      Up    Yes  Up      9212 9212    - accs qinq xcme
1/1/c4/1      Up    Yes  Up      9212 9212    2 netw null xcme
===============================================================================
`
)

// SROSOutput returns the raw output of each SR OS command, keyed by command.
func SROSOutput() map[string]string {
	return map[string]string{
		"show system information": SROSSystemInformation,
		"show port description":   SROSPortDescription,
		"show card detail":        SROSCardDetail,
		"show mda":                SROSMDA,
		"show card":               SROSCard,
		"show port":               SROSPort,
	}
}

// IFMIBOutput returns rendered SNMP walks of a switch with one LAG bundling two ports, keyed by OID.
func IFMIBOutput() map[string]string {
	return map[string]string{
		"1.3.6.1.2.1.1.5": "1.3.6.1.2.1.1.5.0 = LAB-LEAF-01\n",
		"1.3.6.1.2.1.1.1": "1.3.6.1.2.1.1.1.0 = Arista Networks EOS version 4.30.1F running on an Arista DCS-7050SX3-48YC8\n",
		"1.3.6.1.2.1.31.1.1.1.1": "1.3.6.1.2.1.31.1.1.1.1.1 = Ethernet1\n" +
			"1.3.6.1.2.1.31.1.1.1.1.2 = Ethernet2\n" +
			"1.3.6.1.2.1.31.1.1.1.1.3 = Ethernet3\n" +
			"1.3.6.1.2.1.31.1.1.1.1.1000001 = Port-Channel1\n",
		"1.3.6.1.2.1.31.1.1.1.18": "1.3.6.1.2.1.31.1.1.1.18.1 = to spine-01\n" +
			"1.3.6.1.2.1.31.1.1.1.18.2 = to spine-02\n" +
			"1.3.6.1.2.1.31.1.1.1.18.3 = \n" +
			"1.3.6.1.2.1.31.1.1.1.18.1000001 = uplink bundle\n",
		"1.3.6.1.2.1.2.2.1.3": "1.3.6.1.2.1.2.2.1.3.1 = 6\n" +
			"1.3.6.1.2.1.2.2.1.3.2 = 6\n" +
			"1.3.6.1.2.1.2.2.1.3.3 = 6\n" +
			"1.3.6.1.2.1.2.2.1.3.1000001 = 161\n",
		"1.3.6.1.2.1.2.2.1.7": "1.3.6.1.2.1.2.2.1.7.1 = 1\n" +
			"1.3.6.1.2.1.2.2.1.7.2 = 1\n" +
			"1.3.6.1.2.1.2.2.1.7.3 = 2\n" +
			"1.3.6.1.2.1.2.2.1.7.1000001 = 1\n",
		"1.2.840.10006.300.43.1.2.1.1.13": "1.2.840.10006.300.43.1.2.1.1.13.1 = 1000001\n" +
			"1.2.840.10006.300.43.1.2.1.1.13.2 = 1000001\n" +
			"1.2.840.10006.300.43.1.2.1.1.13.3 = 0\n",
	}
}
