package model

import "github.com/pkg/errors"

var (
	// ErrConfiguration is returned for missing or invalid settings, before any network activity.
	ErrConfiguration = errors.New("configuration error")

	// ErrCollection is returned when a device transport or text extraction fails during harvest.
	ErrCollection = errors.New("collection error")

	// ErrClassification is returned when no rule matched and no default is configured.
	ErrClassification = errors.New("classification error")

	// ErrDependencyResolution is returned when a referenced remote object does not exist.
	ErrDependencyResolution = errors.New("dependency resolution error")

	// ErrApply is returned when a remote write targets an object expected to exist.
	ErrApply = errors.New("apply error")

	// ErrInventory is returned when a normalized inventory breaks its referential invariants.
	ErrInventory = errors.New("inventory error")
)
