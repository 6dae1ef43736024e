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
	"cmp"
	"fmt"
	"slices"
)

// Unset is the start/end value of a mark set that holds no marks.
const Unset = -1

// Code is an event marker code as recorded by the acquisition system.
type Code int32

// Mark is a single event: a marker code at a sample index.
type Mark struct {
	Time int  // Sample index of the event
	Code Code // Marker code
}

func (m Mark) String() string {
	return fmt.Sprintf("(%d, %d)", m.Time, m.Code)
}

// CompareMarks orders marks by time, then by code.
func CompareMarks(a, b Mark) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.Code, b.Code)
}

// CodeSet is a set of marker codes.
type CodeSet map[Code]struct{}

// NewCodeSet returns a set holding the given codes.
func NewCodeSet(codes ...Code) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports whether c is a member of the set.
func (s CodeSet) Contains(c Code) bool {
	_, ok := s[c]
	return ok
}

// Codes returns the members in ascending order.
func (s CodeSet) Codes() []Code {
	codes := make([]Code, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}
