// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package trialseg

// Segmenter divides a sorted event stream into trials delimited by start and
// end marker codes.
type Segmenter struct {
	Start CodeSet // Codes that open a trial
	End   CodeSet // Codes that close a trial
}

// Segment scans events, which must be sorted by time then code, and returns
// the trials in order.
//
// A start code discards whatever was collected so far and opens a trial with
// the start mark plus any earlier marks at the same time. Every other mark is
// added to the trial under construction. An end code pulls in the following
// marks at the same time, which are then skipped by the scan, and closes the
// trial. A code in both sets yields a trial of its own.
func (sg Segmenter) Segment(events []Mark) []*MarkSet {
	var trials []*MarkSet
	current := NewMarkSet()

	for i := 0; i < len(events); i++ {
		ev := events[i]

		if sg.Start.Contains(ev.Code) {
			current.Clear()
			current.Insert(ev)
			for j := i - 1; j >= 0 && events[j].Time == ev.Time; j-- {
				current.Insert(events[j])
			}
		} else {
			current.Insert(ev)
		}

		if sg.End.Contains(ev.Code) {
			for i+1 < len(events) && events[i+1].Time == ev.Time {
				i++
				current.Insert(events[i])
			}

			trials = append(trials, current)
			current = NewMarkSet()
		}
	}

	return trials
}
