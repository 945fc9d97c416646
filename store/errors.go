package store

import "errors"

var (
	// ErrValidation 表示请求参数不合法（名字为空、重名、成环等）
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the id does not resolve to a usable record.
	ErrNotFound = errors.New("record not found")
	// ErrPersistence wraps failures of the backing database itself.
	ErrPersistence = errors.New("persistence failed")
)
