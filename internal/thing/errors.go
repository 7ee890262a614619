package thing

import "errors"

// Domain errors for the thing package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, thing.ErrInvalidArgument) {
//	    // handle bad input
//	}
var (
	// ErrInvalidArgument is returned when a required argument (id,
	// description, icon payload) is absent or malformed.
	ErrInvalidArgument = errors.New("thing: invalid argument")

	// ErrInvalidMIME is returned when an icon MIME type is not one of
	// image/jpeg, image/png or image/svg+xml.
	ErrInvalidMIME = errors.New("thing: unsupported icon MIME type")

	// ErrInvalidCoordinates is returned when a floorplan coordinate is
	// outside the [0,100] range.
	ErrInvalidCoordinates = errors.New("thing: coordinates out of range")

	// ErrAssetWrite is returned when the icon asset could not be
	// written. The old icon reference has already been retired by then,
	// so the thing is left with no icon set.
	ErrAssetWrite = errors.New("thing: asset write failed")

	// ErrNoAssetStore is returned by SetIcon when no asset store was
	// configured for the thing.
	ErrNoAssetStore = errors.New("thing: no asset store configured")

	// ErrThingNotFound is returned when a thing ID does not exist.
	ErrThingNotFound = errors.New("thing: not found")

	// ErrThingExists is returned when creating a thing with an ID that
	// already exists.
	ErrThingExists = errors.New("thing: already exists")
)
