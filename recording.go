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

	"gonum.org/v1/gonum/mat"
)

// Well known metadata keys.
const (
	MetaChannelNames      = "chan_name_list"         // []string, one per channel
	MetaEventDescriptions = "event_description_dict" // map[Code]string
)

// Recording is a fully loaded recording as produced by a file loader.
type Recording struct {
	Samples      *mat.Dense     // Channels x samples
	SamplingRate float64        // Samples per second
	EventTimes   []int          // Sample index of each event
	EventCodes   []Code         // Marker code of each event
	Metadata     map[string]any // Loader specific information
}

// Dims returns the number of channels and samples.
func (r *Recording) Dims() (channels, samples int) {
	if r.Samples == nil {
		return 0, 0
	}
	return r.Samples.Dims()
}

// Validate checks that the event arrays pair up and fit in the sample matrix.
func (r *Recording) Validate() error {
	if len(r.EventTimes) != len(r.EventCodes) {
		return fmt.Errorf("%w: %d event times, %d event codes", ErrShapeMismatch, len(r.EventTimes), len(r.EventCodes))
	}

	_, n := r.Dims()
	for i, t := range r.EventTimes {
		if err := checkRange(i, t, t+1, n); err != nil {
			return fmt.Errorf("event %d at sample %d: %w", i, t, err)
		}
	}

	if names, ok := r.Metadata[MetaChannelNames].([]string); ok && r.Samples != nil {
		if channels, _ := r.Dims(); len(names) != channels {
			return fmt.Errorf("%w: %d channel names, %d channels", ErrShapeMismatch, len(names), channels)
		}
	}

	return nil
}

// ChannelNames returns the channel names from the metadata, if any.
func (r *Recording) ChannelNames() []string {
	names, _ := r.Metadata[MetaChannelNames].([]string)
	return names
}
