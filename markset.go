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
	"fmt"
	"slices"
)

// MarkSet is an ordered, duplicate free set of marks belonging to one trial.
// It tracks the half-open span [Start, End) covering every mark it holds.
// The zero value is not ready for use, call NewMarkSet.
type MarkSet struct {
	start int
	end   int
	marks []Mark
}

// NewMarkSet returns an empty mark set.
func NewMarkSet() *MarkSet {
	return &MarkSet{start: Unset, end: Unset}
}

// Start returns the time of the first mark, or Unset.
func (s *MarkSet) Start() int { return s.start }

// End returns one past the time of the last mark, or Unset.
func (s *MarkSet) End() int { return s.end }

// Duration is the length of the span in samples.
func (s *MarkSet) Duration() int { return s.end - s.start }

// IsEmpty reports whether the span has zero length.
func (s *MarkSet) IsEmpty() bool { return s.Duration() == 0 }

// Len returns the number of marks held.
func (s *MarkSet) Len() int { return len(s.marks) }

// Marks returns a copy of the marks in order.
func (s *MarkSet) Marks() []Mark { return slices.Clone(s.marks) }

// Codes returns the marker codes in mark order.
func (s *MarkSet) Codes() []Code {
	codes := make([]Code, len(s.marks))
	for i, m := range s.marks {
		codes[i] = m.Code
	}
	return codes
}

// Contains reports whether m is held in the set.
func (s *MarkSet) Contains(m Mark) bool {
	_, found := slices.BinarySearchFunc(s.marks, m, CompareMarks)
	return found
}

// Clone returns a deep copy of the set.
func (s *MarkSet) Clone() *MarkSet {
	return &MarkSet{start: s.start, end: s.end, marks: slices.Clone(s.marks)}
}

// Clear empties the set.
func (s *MarkSet) Clear() {
	s.start, s.end = Unset, Unset
	s.marks = s.marks[:0]
}

// Append adds a mark at the end of the set. Marks must arrive in time order.
// A mark sharing the time of the last one is placed among the marks of that
// time by code, and dropped if already held.
func (s *MarkSet) Append(m Mark) error {
	if s.IsEmpty() {
		s.start = m.Time
		s.end = m.Time + 1
		s.marks = append(s.marks, m)
		return nil
	}

	if m.Time < s.end-1 {
		return fmt.Errorf("%w: %v before end of span [%d, %d)", ErrOrdering, m, s.start, s.end)
	}

	if CompareMarks(m, s.marks[len(s.marks)-1]) <= 0 {
		// Same time as the last mark, so the span is unchanged.
		i, found := slices.BinarySearchFunc(s.marks, m, CompareMarks)
		if !found {
			s.marks = slices.Insert(s.marks, i, m)
		}
		return nil
	}

	s.end = m.Time + 1
	s.marks = append(s.marks, m)
	return nil
}

// Insert adds a mark at its ordered position, ignoring duplicates.
func (s *MarkSet) Insert(m Mark) {
	if s.IsEmpty() {
		// Append cannot fail on an empty set.
		_ = s.Append(m)
		return
	}

	i, found := slices.BinarySearchFunc(s.marks, m, CompareMarks)
	if !found {
		s.marks = slices.Insert(s.marks, i, m)
	}

	s.start = min(s.start, m.Time)
	s.end = max(s.end, m.Time+1)
}

// Erase removes every mark equal to m and returns how many were removed.
func (s *MarkSet) Erase(m Mark) int {
	n := len(s.marks)
	s.marks = slices.DeleteFunc(s.marks, func(o Mark) bool { return o == m })
	s.updateSpan()
	return n - len(s.marks)
}

func (s *MarkSet) updateSpan() {
	if len(s.marks) == 0 {
		s.Clear()
		return
	}
	s.start = s.marks[0].Time
	s.end = s.marks[len(s.marks)-1].Time + 1
}

func (s *MarkSet) String() string {
	return fmt.Sprintf("trial [%d, %d) marks %v", s.start, s.end, s.marks)
}
