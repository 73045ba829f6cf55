package repository

import "errors"

// ErrNoRowsAffected signals a conditional update that matched no row.
var ErrNoRowsAffected = errors.New("no rows affected")
