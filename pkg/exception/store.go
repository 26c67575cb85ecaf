package exception

import "errors"

var (
	ErrStoreDisabled   = errors.New("store: disabled by configuration")
	ErrDepositNotFound = errors.New("store: deposit process not found")
	ErrNilStoreClient  = errors.New("store: nil postgres client")
)
