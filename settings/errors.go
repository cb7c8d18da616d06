package settings

import "errors"

var (
	// ErrChecksum is returned by Decode when the trailing checksum does not
	// match the record bytes.
	//
	// This usually means the storage region was never written or was
	// corrupted. Callers restore defaults.
	ErrChecksum = errors.New("settings: checksum mismatch")

	// ErrVersion is returned by Decode when the stored layout version differs
	// from the one this build writes.
	ErrVersion = errors.New("settings: version mismatch")

	// ErrSize is returned by Decode when the stored image has the wrong length.
	ErrSize = errors.New("settings: wrong record size")

	// ErrInvalid is returned when a record holds a value outside its
	// allowed range.
	ErrInvalid = errors.New("settings: invalid value")

	// ErrNotFound is returned by a Store that holds no record yet.
	ErrNotFound = errors.New("settings: no stored record")
)
