package repository

import "errors"

// ErrEmailExists is returned when a user is created with an email that is
// already registered. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
