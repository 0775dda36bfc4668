package view

import "errors"

// Sentinel errors returned by Registry.Register. These indicate declaration
// mistakes caught at startup, before any SQL runs.
var (
	// ErrDuplicateView is returned when two descriptors claim the same table name.
	ErrDuplicateView = errors.New("view: duplicate view registration")

	// ErrMaterializedReplace is returned when a materialized view descriptor
	// requests replace migrations. Materialized views have no REPLACE
	// statement form on any engine.
	ErrMaterializedReplace = errors.New("view: materialized views cannot use replace migrations")

	// ErrInvalidDescriptor is returned for descriptors missing a table name
	// or definition.
	ErrInvalidDescriptor = errors.New("view: invalid descriptor")
)

// IsDuplicateViewErr returns true if err is or wraps ErrDuplicateView.
func IsDuplicateViewErr(err error) bool {
	return errors.Is(err, ErrDuplicateView)
}

// IsMaterializedReplaceErr returns true if err is or wraps ErrMaterializedReplace.
func IsMaterializedReplaceErr(err error) bool {
	return errors.Is(err, ErrMaterializedReplace)
}

// IsInvalidDescriptorErr returns true if err is or wraps ErrInvalidDescriptor.
func IsInvalidDescriptorErr(err error) bool {
	return errors.Is(err, ErrInvalidDescriptor)
}
