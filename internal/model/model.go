package model

import (
	"regexp"
	"strings"
)

const (
	AppName = "netsync"

	LogLevelInfo  = 0
	LogLevelDebug = 1
	LogLevelTrace = 2

	// DefaultProposalsDir is where dry-run proposal documents are written when unset.
	DefaultProposalsDir = "proposals"

	// DefaultTokenEnv is the environment variable checked first for the NetBox API token.
	DefaultTokenEnv = "NETBOX_TOKEN"
)

// Kind identifies the entity a Proposal is planned for.
type Kind string

const (
	KindDevice    Kind = "device"
	KindModuleBay Kind = "module_bay"
	KindModule    Kind = "module"
	KindInterface Kind = "interface"
	KindLag       Kind = "lag"
)

// Action is the planned change for a single entity.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionNoop   Action = "noop"
)

// Actions returns the actions in the order they are reported.
func Actions() []Action { return []Action{ActionCreate, ActionUpdate, ActionNoop} }

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the value, collapses every run of characters outside [a-z0-9]
// into a single hyphen and trims leading and trailing hyphens.
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = nonSlugChars.ReplaceAllString(value, "-")

	return strings.Trim(value, "-")
}
