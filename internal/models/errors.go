package models

import (
	"errors"
	"fmt"
)

// ErrMalformedIdentity is returned when a push token has no bracket-delimited identity.
var ErrMalformedIdentity = errors.New("malformed push token: expected a [identity] segment")

// TransportError means the external service could not be reached at all.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError means the external service answered with a failure.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s error: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Service, e.Status, e.Message)
}

// StorageError wraps any failure of the subscription backend.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
