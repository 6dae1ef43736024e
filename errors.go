// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package trialseg

import (
	"errors"
	"fmt"
)

var (
	// ErrOrdering is returned when a mark is appended behind the current span.
	ErrOrdering = errors.New("mark out of order")
	// ErrNotSegmented is returned when trials are requested before any were found.
	ErrNotSegmented = errors.New("recording not divided into trials")
	// ErrRange is returned when a window falls outside the sample matrix.
	ErrRange = errors.New("window out of range")
	// ErrShapeMismatch is returned when paired arrays differ in length.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// RangeError describes a window [Start, End) that does not fit in [0, Limit).
// Index is the position of the offending trial or event occurrence.
type RangeError struct {
	Index int
	Start int
	End   int
	Limit int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("window %d [%d, %d) outside [0, %d)", e.Index, e.Start, e.End, e.Limit)
}

func (e *RangeError) Unwrap() error {
	return ErrRange
}

func checkRange(index, start, end, limit int) error {
	if start < 0 || end > limit || start > end {
		return &RangeError{Index: index, Start: start, End: end, Limit: limit}
	}
	return nil
}
