// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package trialseg_test

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/OpenPSG/trialseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSetEmpty(t *testing.T) {
	s := trialseg.NewMarkSet()

	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Duration())
	assert.Equal(t, trialseg.Unset, s.Start())
	assert.Equal(t, trialseg.Unset, s.End())
	assert.Equal(t, 0, s.Erase(trialseg.Mark{Time: 1, Code: 1}))
}

func TestMarkSetAppend(t *testing.T) {
	s := trialseg.NewMarkSet()

	marks := []trialseg.Mark{
		{Time: 5, Code: 1},
		{Time: 5, Code: 2},
		{Time: 9, Code: 4},
		{Time: 12, Code: 3},
	}
	for _, m := range marks {
		require.NoError(t, s.Append(m))
	}

	assert.Equal(t, marks, s.Marks())
	assert.Equal(t, 5, s.Start())
	assert.Equal(t, 13, s.End())
	assert.Equal(t, 8, s.Duration())

	// Exact duplicate of the last mark is dropped.
	require.NoError(t, s.Append(trialseg.Mark{Time: 12, Code: 3}))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 13, s.End())

	// Behind the span.
	err := s.Append(trialseg.Mark{Time: 11, Code: 3})
	require.ErrorIs(t, err, trialseg.ErrOrdering)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 13, s.End())
}

func TestMarkSetAppendSameTime(t *testing.T) {
	s := trialseg.NewMarkSet()

	require.NoError(t, s.Append(trialseg.Mark{Time: 2, Code: 7}))
	require.NoError(t, s.Append(trialseg.Mark{Time: 5, Code: 2}))
	require.NoError(t, s.Append(trialseg.Mark{Time: 5, Code: 4}))
	require.NoError(t, s.Append(trialseg.Mark{Time: 5, Code: 1}))
	require.NoError(t, s.Append(trialseg.Mark{Time: 5, Code: 2}))

	want := []trialseg.Mark{{Time: 2, Code: 7}, {Time: 5, Code: 1}, {Time: 5, Code: 2}, {Time: 5, Code: 4}}
	assert.Equal(t, want, s.Marks())
	assert.Equal(t, 2, s.Start())
	assert.Equal(t, 6, s.End())
	assert.True(t, s.Contains(trialseg.Mark{Time: 5, Code: 1}))

	s.Insert(trialseg.Mark{Time: 5, Code: 1})
	assert.Equal(t, 4, s.Len())
	assert.True(t, slices.IsSortedFunc(s.Marks(), trialseg.CompareMarks))
}

func TestMarkSetInsert(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for range 50 {
		s := trialseg.NewMarkSet()

		var inserted []trialseg.Mark
		for range 40 {
			m := trialseg.Mark{Time: rng.Intn(30), Code: trialseg.Code(rng.Intn(4))}
			inserted = append(inserted, m)
			s.Insert(m)
		}

		marks := s.Marks()
		require.True(t, slices.IsSortedFunc(marks, trialseg.CompareMarks))
		for i := 1; i < len(marks); i++ {
			require.NotEqual(t, marks[i-1], marks[i])
		}

		slices.SortFunc(inserted, trialseg.CompareMarks)
		assert.Equal(t, slices.Compact(inserted), marks)

		for _, m := range marks {
			assert.GreaterOrEqual(t, m.Time, s.Start())
			assert.Less(t, m.Time, s.End())
		}
		assert.Equal(t, marks[0].Time, s.Start())
		assert.Equal(t, marks[len(marks)-1].Time+1, s.End())
	}
}

func TestMarkSetInsertDuplicate(t *testing.T) {
	s := trialseg.NewMarkSet()
	s.Insert(trialseg.Mark{Time: 4, Code: 1})
	s.Insert(trialseg.Mark{Time: 2, Code: 1})
	s.Insert(trialseg.Mark{Time: 4, Code: 1})

	assert.Equal(t, []trialseg.Mark{{Time: 2, Code: 1}, {Time: 4, Code: 1}}, s.Marks())
	assert.Equal(t, 2, s.Start())
	assert.Equal(t, 5, s.End())
	assert.True(t, s.Contains(trialseg.Mark{Time: 2, Code: 1}))
	assert.False(t, s.Contains(trialseg.Mark{Time: 2, Code: 2}))
}

func TestMarkSetErase(t *testing.T) {
	s := trialseg.NewMarkSet()
	marks := []trialseg.Mark{{Time: 1, Code: 1}, {Time: 3, Code: 2}, {Time: 7, Code: 1}}
	for _, m := range marks {
		s.Insert(m)
	}

	assert.Equal(t, 1, s.Erase(marks[2]))
	assert.Equal(t, 0, s.Erase(marks[2]))
	assert.Equal(t, 1, s.Start())
	assert.Equal(t, 4, s.End())

	assert.Equal(t, 1, s.Erase(marks[0]))
	assert.Equal(t, 3, s.Start())
	assert.Equal(t, 4, s.End())

	assert.Equal(t, 1, s.Erase(marks[1]))
	assert.True(t, s.IsEmpty())
	assert.Equal(t, trialseg.Unset, s.Start())
	assert.Equal(t, trialseg.Unset, s.End())
}

func TestMarkSetClear(t *testing.T) {
	s := trialseg.NewMarkSet()
	require.NoError(t, s.Append(trialseg.Mark{Time: 3, Code: 1}))

	clone := s.Clone()
	s.Clear()

	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, clone.Len())
	assert.Equal(t, 3, clone.Start())

	// A cleared set starts over from whatever comes next.
	require.NoError(t, s.Append(trialseg.Mark{Time: 1, Code: 1}))
	assert.Equal(t, 1, s.Start())
	assert.Equal(t, 2, s.End())
}
