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
	"testing"

	"github.com/OpenPSG/trialseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	codeAux   trialseg.Code = 3
	codeStart trialseg.Code = 7
	codeEnd   trialseg.Code = 8
	codeAux2  trialseg.Code = 9
	codeBoth  trialseg.Code = 20
)

func segmenter() trialseg.Segmenter {
	return trialseg.Segmenter{
		Start: trialseg.NewCodeSet(codeStart, codeBoth),
		End:   trialseg.NewCodeSet(codeEnd, codeBoth),
	}
}

func TestSegmentCoincidentTimestamps(t *testing.T) {
	events := []trialseg.Mark{
		{Time: 10, Code: codeAux},
		{Time: 10, Code: codeStart},
		{Time: 12, Code: codeEnd},
		{Time: 12, Code: codeAux2},
	}

	trials := segmenter().Segment(events)
	require.Len(t, trials, 1)

	assert.Equal(t, events, trials[0].Marks())
	assert.Equal(t, 10, trials[0].Start())
	assert.Equal(t, 13, trials[0].End())
}

func TestSegmentDualRoleMarker(t *testing.T) {
	events := []trialseg.Mark{
		{Time: 2, Code: codeStart},
		{Time: 4, Code: codeEnd},
		{Time: 30, Code: codeBoth},
	}

	trials := segmenter().Segment(events)
	require.Len(t, trials, 2)

	assert.Equal(t, []trialseg.Mark{{Time: 30, Code: codeBoth}}, trials[1].Marks())
	assert.Equal(t, 30, trials[1].Start())
	assert.Equal(t, 31, trials[1].End())
}

func TestSegmentMultipleTrials(t *testing.T) {
	events := []trialseg.Mark{
		{Time: 0, Code: 1},
		{Time: 5, Code: codeStart},
		{Time: 6, Code: codeAux},
		{Time: 9, Code: codeEnd},
		{Time: 15, Code: codeStart},
		{Time: 16, Code: codeStart}, // restarts the trial
		{Time: 18, Code: codeAux2},
		{Time: 21, Code: codeEnd},
	}

	trials := segmenter().Segment(events)
	require.Len(t, trials, 2)

	assert.Equal(t, []trialseg.Mark{{Time: 5, Code: codeStart}, {Time: 6, Code: codeAux}, {Time: 9, Code: codeEnd}}, trials[0].Marks())
	assert.Equal(t, 5, trials[0].Start())
	assert.Equal(t, 10, trials[0].End())

	assert.Equal(t, []trialseg.Mark{{Time: 16, Code: codeStart}, {Time: 18, Code: codeAux2}, {Time: 21, Code: codeEnd}}, trials[1].Marks())
	assert.Equal(t, 16, trials[1].Start())
	assert.Equal(t, 22, trials[1].End())
}

func TestSegmentLookaheadConsumesStart(t *testing.T) {
	sg := trialseg.Segmenter{
		Start: trialseg.NewCodeSet(codeAux2),
		End:   trialseg.NewCodeSet(codeEnd),
	}

	// The second start marker shares the end marker's time, so it is folded
	// into the closing trial and never opens one of its own.
	events := []trialseg.Mark{
		{Time: 1, Code: codeAux2},
		{Time: 4, Code: codeEnd},
		{Time: 4, Code: codeAux2},
		{Time: 8, Code: codeAux},
	}

	trials := sg.Segment(events)
	require.Len(t, trials, 1)
	assert.Equal(t, events[:3], trials[0].Marks())
	assert.Equal(t, 1, trials[0].Start())
	assert.Equal(t, 5, trials[0].End())
}

func TestSegmentUnterminatedTrialDropped(t *testing.T) {
	events := []trialseg.Mark{
		{Time: 1, Code: codeStart},
		{Time: 2, Code: codeEnd},
		{Time: 5, Code: codeStart},
		{Time: 6, Code: codeAux},
	}

	trials := segmenter().Segment(events)
	require.Len(t, trials, 1)
	assert.Equal(t, 1, trials[0].Start())
	assert.Equal(t, 3, trials[0].End())
}

func TestSegmentNoEvents(t *testing.T) {
	assert.Empty(t, segmenter().Segment(nil))
}

func TestSegmentIdempotent(t *testing.T) {
	events := []trialseg.Mark{
		{Time: 3, Code: codeStart},
		{Time: 3, Code: codeAux2},
		{Time: 7, Code: codeEnd},
		{Time: 7, Code: codeAux2},
		{Time: 9, Code: codeBoth},
		{Time: 11, Code: codeStart},
		{Time: 12, Code: codeEnd},
	}

	first := segmenter().Segment(events)
	second := segmenter().Segment(events)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}
