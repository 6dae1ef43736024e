// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package trialseg

import "fmt"

// TrialWindows returns a window per trial together with the trials themselves.
// When both code sets are given the recording is segmented first, otherwise
// the trials of the last pass are used.
func (t *Timeline) TrialWindows(start, end CodeSet) ([]Window, []*MarkSet, error) {
	if start != nil && end != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.segmentLocked(start, end)
	} else {
		t.mu.RLock()
		defer t.mu.RUnlock()
	}

	if err := t.checkSegmented(); err != nil {
		return nil, nil, err
	}

	n := t.SampleCount()
	windows := make([]Window, len(t.trials))
	for i, tr := range t.trials {
		if err := checkRange(i, tr.Start(), tr.End(), n); err != nil {
			return nil, nil, fmt.Errorf("error extracting trial %d: %w", i, err)
		}
		windows[i] = Window{Index: i, Start: tr.Start(), End: tr.End(), src: t.samples}
	}

	return windows, cloneTrials(t.trials), nil
}

// EventWindows returns a window for every occurrence of code. A non-negative
// windowLen selects the samples from the event onwards, a negative one the
// samples leading up to it.
func (t *Timeline) EventWindows(code Code, windowLen int) ([]Window, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.SampleCount()
	var windows []Window
	for _, ev := range t.events {
		if ev.Code != code {
			continue
		}

		start, end := ev.Time, ev.Time+windowLen
		if windowLen < 0 {
			start, end = ev.Time+windowLen, ev.Time
		}

		idx := len(windows)
		if err := checkRange(idx, start, end, n); err != nil {
			return nil, fmt.Errorf("error extracting event %d (code %d at sample %d): %w", idx, code, ev.Time, err)
		}
		windows = append(windows, Window{Index: idx, Start: start, End: end, src: t.samples})
	}

	return windows, nil
}
