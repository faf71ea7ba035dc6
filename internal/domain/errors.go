package domain

import "errors"

var (
	ErrInvalidReading  = errors.New("invalid reading")
	ErrUpgradeRejected = errors.New("not a websocket upgrade request")
	ErrHandshakeFailed = errors.New("websocket handshake failed")
	ErrEngineStopped   = errors.New("broadcast engine stopped")
	ErrNoReading       = errors.New("no reading stored")
)
