package enrich

import (
	"errors"
	"fmt"

	"chronicle/internal/services"
)

// Class is the failure category of an error.
type Class int

// Failure classes.
const (
	ClassNone Class = iota
	ClassSoft
	ClassSkip
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassSoft:
		return "soft"
	case ClassSkip:
		return "skip"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrClipUnreadable marks clips whose audio cannot be used at all.
var ErrClipUnreadable = errors.New("clip audio unreadable")

// Classify maps an error onto the failure taxonomy. Anything that is neither
// fatal nor a clip-level skip is soft.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, services.ErrFatal):
		return ClassFatal
	case errors.Is(err, ErrClipUnreadable):
		return ClassSkip
	default:
		return ClassSoft
	}
}

func clipUnreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrClipUnreadable, fmt.Sprintf(format, args...))
}
