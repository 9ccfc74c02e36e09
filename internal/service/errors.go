package service

import "errors"

// ErrMissingIdentifiers indicates the task id or user id was not supplied.
var ErrMissingIdentifiers = errors.New("missing task id or user id")
