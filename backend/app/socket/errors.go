package socket

import "errors"

var (
	errMissingIdentity = errors.New("socket: login missing device id or serial")
	errTokenMismatch   = errors.New("socket: token does not match device")
)
