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
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Option configures a Timeline.
type Option func(*Timeline)

// WithLogger sets the logger used for segmentation and event merges.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Timeline) {
		t.logger = logger
	}
}

// Timeline holds a recording's sample matrix and its sorted event stream,
// along with the trials found by the last segmentation pass.
//
// Segment and AddEvents are serialized against each other and against
// extraction. Windows returned by extraction stay valid afterwards.
type Timeline struct {
	samples      *mat.Dense
	samplingRate float64
	logger       *zap.Logger

	mu        sync.RWMutex
	events    []Mark
	metadata  map[string]any
	trials    []*MarkSet
	segmented bool
}

// NewTimeline takes ownership of the recording's sample matrix and sorts its
// events by time then code.
func NewTimeline(rec *Recording, opts ...Option) (*Timeline, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("error validating recording: %w", err)
	}

	samples := rec.Samples
	if samples == nil {
		samples = &mat.Dense{}
	}

	events := make([]Mark, len(rec.EventTimes))
	for i := range events {
		events[i] = Mark{Time: rec.EventTimes[i], Code: rec.EventCodes[i]}
	}
	slices.SortStableFunc(events, CompareMarks)

	metadata := maps.Clone(rec.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}

	t := &Timeline{
		samples:      samples,
		samplingRate: rec.SamplingRate,
		logger:       zap.NewNop(),
		events:       events,
		metadata:     metadata,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// ChannelCount returns the number of channels.
func (t *Timeline) ChannelCount() int {
	r, _ := t.samples.Dims()
	return r
}

// SampleCount returns the number of samples per channel.
func (t *Timeline) SampleCount() int {
	_, c := t.samples.Dims()
	return c
}

// SamplingRate returns the number of samples per second.
func (t *Timeline) SamplingRate() float64 {
	return t.samplingRate
}

// Events returns a copy of the sorted event stream.
func (t *Timeline) Events() []Mark {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Clone(t.events)
}

// HasCode reports whether any event carries the given code.
func (t *Timeline) HasCode(code Code) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.ContainsFunc(t.events, func(m Mark) bool { return m.Code == code })
}

// Metadata returns a shallow copy of the recording metadata.
func (t *Timeline) Metadata() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return maps.Clone(t.metadata)
}

// SetEventDescriptions records a human readable description per event code.
func (t *Timeline) SetEventDescriptions(desc map[Code]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metadata[MetaEventDescriptions] = maps.Clone(desc)
}

// AddEvents merges new events into the stream, keeping it sorted. Duplicate
// events are kept. On error the stream is left unchanged.
func (t *Timeline) AddEvents(times []int, codes []Code) error {
	if len(times) != len(codes) {
		return fmt.Errorf("%w: %d event times, %d event codes", ErrShapeMismatch, len(times), len(codes))
	}

	n := t.SampleCount()
	for i, tm := range times {
		if err := checkRange(i, tm, tm+1, n); err != nil {
			return fmt.Errorf("error adding event %d at sample %d: %w", i, tm, err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	merged := make([]Mark, len(t.events), len(t.events)+len(times))
	copy(merged, t.events)
	for i := range times {
		merged = append(merged, Mark{Time: times[i], Code: codes[i]})
	}
	slices.SortStableFunc(merged, CompareMarks)
	t.events = merged

	t.logger.Debug("Merged events", zap.Int("added", len(times)), zap.Int("total", len(t.events)))

	return nil
}

// Segment divides the event stream into trials and stores them, replacing the
// trials of any previous pass.
func (t *Timeline) Segment(start, end CodeSet) []*MarkSet {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.segmentLocked(start, end)
	return cloneTrials(t.trials)
}

func (t *Timeline) segmentLocked(start, end CodeSet) {
	t.trials = Segmenter{Start: start, End: end}.Segment(t.events)
	t.segmented = true

	t.logger.Debug("Divided recording into trials",
		zap.Int("trials", len(t.trials)),
		zap.Int("events", len(t.events)),
		zap.Any("start_codes", start.Codes()),
		zap.Any("end_codes", end.Codes()))
}

// Trials returns the trials of the last segmentation pass.
func (t *Timeline) Trials() ([]*MarkSet, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkSegmented(); err != nil {
		return nil, err
	}
	return cloneTrials(t.trials), nil
}

func (t *Timeline) checkSegmented() error {
	if !t.segmented {
		return fmt.Errorf("%w: no code sets given and no prior pass", ErrNotSegmented)
	}
	if len(t.trials) == 0 {
		return fmt.Errorf("%w: last pass found no trials", ErrNotSegmented)
	}
	return nil
}

func (t *Timeline) String() string {
	return fmt.Sprintf("Recording of %d samples from %d channels at %gHz", t.SampleCount(), t.ChannelCount(), t.samplingRate)
}

func cloneTrials(trials []*MarkSet) []*MarkSet {
	out := make([]*MarkSet, len(trials))
	for i, tr := range trials {
		out[i] = tr.Clone()
	}
	return out
}

// OffsetEvents derives new events at a fixed offset from every event whose
// code is in codes, all carrying newCode. The result can be passed to
// AddEvents, for instance to close trials a fixed time after they start.
func OffsetEvents(events []Mark, codes CodeSet, offset int, newCode Code) ([]int, []Code) {
	var times []int
	var newCodes []Code
	for _, ev := range events {
		if codes.Contains(ev.Code) {
			times = append(times, ev.Time+offset)
			newCodes = append(newCodes, newCode)
		}
	}
	return times, newCodes
}
