package service

import "fmt"

// ErrPersistence indicates an infrastructure/repository failure inside a use
// case. Safe to retry for the read-only list operations; a failed send is an
// unknown outcome and callers should re-fetch history before retrying.
var ErrPersistence = fmt.Errorf("messaging: persistence error")
