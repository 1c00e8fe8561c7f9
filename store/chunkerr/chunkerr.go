// Copyright 2024 The chunkstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chunkerr defines the typed error kinds raised across the encoder
// and cache chain. Every public operation that can fail wraps one of these
// sentinels with github.com/pkg/errors so callers can both match the kind
// with errors.Is and inspect the underlying message.
package chunkerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error kinds. Match against these with errors.Is.
var (
	// ErrInvalidArgument indicates a malformed count, negative budget, or
	// malformed chunk name was supplied to an operation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState indicates an attach operation was called in an order
	// the encoder's state machine forbids (no previous chunk, mid-split
	// extension, extending a sealed chunk).
	ErrInvalidState = errors.New("invalid state")

	// ErrOutOfRange indicates a sample index below 0 or >= num_samples.
	ErrOutOfRange = errors.New("out of range")

	// ErrNotFound indicates a key was absent from every layer queried.
	ErrNotFound = errors.New("not found")

	// ErrBackendFailure indicates an underlying provider failed during a
	// read, write, or flush. It is surfaced unchanged by wrapping layers.
	ErrBackendFailure = errors.New("backend failure")
)

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...interface{}) error {
	return errors.Wrap(ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidState wraps ErrInvalidState with a formatted message.
func InvalidState(format string, args ...interface{}) error {
	return errors.Wrap(ErrInvalidState, fmt.Sprintf(format, args...))
}

// OutOfRange wraps ErrOutOfRange with a formatted message.
func OutOfRange(format string, args ...interface{}) error {
	return errors.Wrap(ErrOutOfRange, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrap(ErrNotFound, fmt.Sprintf(format, args...))
}

// backendError carries the provider's original error as its cause while
// still matching errors.Is(err, ErrBackendFailure).
type backendError struct {
	msg   string
	cause error
}

func (e *backendError) Error() string { return e.msg }
func (e *backendError) Unwrap() error { return e.cause }
func (e *backendError) Is(target error) bool {
	return target == ErrBackendFailure
}

// Cause satisfies github.com/pkg/errors' causer interface so
// errors.Cause(err) returns the provider's original error.
func (e *backendError) Cause() error { return e.cause }

// BackendFailure wraps ErrBackendFailure around the error a provider
// returned, preserving it as the cause for errors.Unwrap/errors.Cause.
func BackendFailure(cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = fmt.Sprintf("%s: %s: %s", ErrBackendFailure.Error(), msg, cause.Error())
	} else {
		msg = fmt.Sprintf("%s: %s", ErrBackendFailure.Error(), msg)
	}
	return &backendError{msg: msg, cause: cause}
}
