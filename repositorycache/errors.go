package repositorycache

import "github.com/zeebo/errs"

var (
	// ErrNotFound marks operations on an id missing from both cache and store.
	ErrNotFound = errs.Class("not found")
	// ErrStore wraps metadata store failures. The store error stays reachable
	// through errors.Is and errors.As.
	ErrStore = errs.Class("store")
	// ErrPartialMutation marks a recreate that removed the record but could
	// not insert it again. The record is gone from the store.
	ErrPartialMutation = errs.Class("partial mutation")
	// ErrInvalid wraps rejected input.
	ErrInvalid = errs.Class("invalid")
)
