package services

import "errors"

// Error kinds reported to API callers next to the message.
const (
	KindInvalidInput         = "invalid_input"
	KindUnauthenticated      = "unauthenticated"
	KindAccessDenied         = "access_denied"
	KindNotFound             = "not_found"
	KindConflict             = "conflict"
	KindStorageWriteFailed   = "storage_write_failed"
	KindClassificationFailed = "classification_failed"
	KindPersistenceFailed    = "persistence_failed"
	KindInternal             = "internal"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrInvalidExport, KindInvalidInput},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrInvalidToken, KindUnauthenticated},
	{ErrExpiredToken, KindUnauthenticated},
	{ErrAccessDenied, KindAccessDenied},
	{ErrFarmNotFound, KindNotFound},
	{ErrImageNotFound, KindNotFound},
	{ErrTokenNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrDuplicateRegistryCode, KindConflict},
	{ErrAlreadyAssociated, KindConflict},
	{ErrStorageWriteFailed, KindStorageWriteFailed},
	{ErrClassificationFailed, KindClassificationFailed},
	{ErrPersistenceFailed, KindPersistenceFailed},
}

// ErrorKind classifies err into one of the Kind constants. Anything not
// recognized is internal.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
