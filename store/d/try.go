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

// Package d holds assertion helpers for invariants that indicate a bug in
// this package's own bookkeeping rather than caller misuse. Caller-facing
// failures (bad arguments, out-of-range indices, missing keys) are never
// routed through here — they are returned as typed errors from
// store/chunkerr instead.
package d

import "fmt"

// PanicIfTrue panics if cond is true.
func PanicIfTrue(cond bool) {
	if cond {
		panic("invariant violated")
	}
}

// PanicIfFalse panics if cond is false.
func PanicIfFalse(cond bool) {
	if !cond {
		panic("invariant violated")
	}
}

// PanicIfError panics if err is non-nil.
func PanicIfError(err error) {
	if err != nil {
		panic(err)
	}
}

// Chk panics with a formatted message if cond is false.
func Chk(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

type wrappedError struct {
	msg   string
	cause error
}

func (w wrappedError) Error() string { return w.msg }
func (w wrappedError) Cause() error  { return w.cause }

// Wrap records err as the cause of a new error carrying the same message.
// Wrapping an already-wrapped error or a nil error is a no-op.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if we, ok := err.(wrappedError); ok {
		return we
	}
	return wrappedError{err.Error(), err}
}

// Unwrap returns the cause of err if it was produced by Wrap, or err itself
// otherwise.
func Unwrap(err error) error {
	if we, ok := err.(wrappedError); ok {
		return we.cause
	}
	return err
}
