package snapshot

import "errors"

// Fatal errors. They abort the running operation and are returned wrapped
// with the offending type, entity or path.
var (
	ErrDuplicateTypeName = errors.New("type name registered twice")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidType       = errors.New("invalid component type")
	ErrNameConflict      = errors.New("entity already has a different path name")
	ErrOrphaned          = errors.New("parent is neither serialized nor named")
	ErrDuplicatePath     = errors.New("two entities resolve to the same path")
	ErrDuplicateResource = errors.New("more than one record for a resource")
	ErrDespawnAll        = errors.New("refusing to despawn every entity")
)

// Reported errors. The failing sub-step is skipped and logged; when one of
// these aborts a whole operation it is returned as is.
var (
	ErrAmbiguousInput = errors.New("both file and bytes given as input")
	ErrNoInput        = errors.New("no input given")
	ErrConvert        = errors.New("conversion failed")
	ErrCodec          = errors.New("codec failed")
	ErrUnknownType    = errors.New("document holds an unregistered type")
)

var fatal = []error{
	ErrDuplicateTypeName,
	ErrInvalidName,
	ErrInvalidType,
	ErrNameConflict,
	ErrOrphaned,
	ErrDuplicatePath,
	ErrDuplicateResource,
	ErrDespawnAll,
}

// IsFatal reports whether err signals a programmer or data invariant
// violation, as opposed to a recoverable codec or input problem.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, f := range fatal {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}
