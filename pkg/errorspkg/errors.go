// Package errorspkg provides errors shared by all ledger layers.
package errorspkg

import "errors"

// ErrInternal indicates a storage or infrastructure fault whose details are kept from callers.
var ErrInternal = errors.New("internal")
