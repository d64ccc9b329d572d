package esent

import (
	"errors"

	"github.com/C-Sto/goesedb/pkg/bytecodec"
)

var (
	ErrArgument                 = errors.New("invalid argument")
	ErrOutOfBounds              = bytecodec.ErrOutOfBounds
	ErrInvalidSignature         = errors.New("invalid file signature")
	ErrUnsupportedFormat        = errors.New("unsupported format version")
	ErrInvalidPageSize          = errors.New("invalid page size")
	ErrCorruptData              = errors.New("corrupt data")
	ErrCorruptTree              = errors.New("corrupt page tree")
	ErrCorruptLongValue         = errors.New("corrupt long value")
	ErrUnsupportedSchemaVersion = errors.New("unsupported catalog schema version")
	ErrUnsupportedValue         = errors.New("unsupported value")
	ErrValueMissing             = errors.New("value missing")
	ErrValueAlreadySet          = errors.New("value already set")
	ErrAborted                  = errors.New("aborted")
)
