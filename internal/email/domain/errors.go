package domain

import "errors"

// ErrProviderTransient wraps mailbox API failures that a later run may not hit.
var ErrProviderTransient = errors.New("mail provider unavailable")
