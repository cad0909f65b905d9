package services

import "errors"

var (
	// ErrInvalidInput is returned for rejected workflow arguments; nothing is persisted
	ErrInvalidInput = errors.New("invalid input")
	// ErrDispatchFailed is returned when an email could not be handed to the transport
	ErrDispatchFailed = errors.New("dispatch failed")
)
