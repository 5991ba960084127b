package db

import "errors"

var errDBUnavailable = errors.New("db unavailable")
