// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package epd loads EPD recordings: a text header naming one binary file per
// channel plus two binary event files (timestamps and codes).
package epd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header represents the EPD text header.
type Header struct {
	Version       float64  // Version of the header format (1.0 carries an extra field)
	ChannelCount  int      // Number of channels
	SamplingRate  float64  // Sampling frequency in Hz
	SampleCount   int      // Number of samples per channel
	ChannelFiles  []string // Sample file of each channel (float32)
	EventTimeFile string   // Event timestamp file (int32)
	EventCodeFile string   // Event code file (int32)
	EventCount    int      // Number of events
	ChannelNames  []string // Label of each channel
}

// Every field is preceded by comment lines.
type headerScanner struct {
	s    *bufio.Scanner
	line int
}

func (hs *headerScanner) next() (string, error) {
	if !hs.s.Scan() {
		if err := hs.s.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	hs.line++
	return strings.TrimRight(hs.s.Text(), "\r"), nil
}

// field skips n comment lines and returns the line after them.
func (hs *headerScanner) field(n int) (string, error) {
	for range n {
		if _, err := hs.next(); err != nil {
			return "", err
		}
	}
	return hs.next()
}

func (hs *headerScanner) lines(n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		var err error
		if out[i], err = hs.next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadHeader parses an EPD header.
func ReadHeader(r io.Reader) (*Header, error) {
	hs := &headerScanner{s: bufio.NewScanner(r)}
	hdr := &Header{}

	s, err := hs.field(2)
	if err != nil {
		return nil, fmt.Errorf("error reading version: %w", err)
	}
	if hdr.Version, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return nil, fmt.Errorf("error parsing version on line %d: %w", hs.line, err)
	}

	if hdr.ChannelCount, err = hs.intField("channel count"); err != nil {
		return nil, err
	}

	if s, err = hs.field(2); err != nil {
		return nil, fmt.Errorf("error reading sampling rate: %w", err)
	}
	if hdr.SamplingRate, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return nil, fmt.Errorf("error parsing sampling rate on line %d: %w", hs.line, err)
	}

	if hdr.SampleCount, err = hs.intField("sample count"); err != nil {
		return nil, err
	}

	if hdr.ChannelCount < 0 || hdr.SampleCount < 0 {
		return nil, fmt.Errorf("invalid dimensions: %d channels, %d samples", hdr.ChannelCount, hdr.SampleCount)
	}

	if _, err = hs.field(1); err != nil {
		return nil, fmt.Errorf("error reading channel files: %w", err)
	}
	if hdr.ChannelFiles, err = hs.lines(hdr.ChannelCount); err != nil {
		return nil, fmt.Errorf("error reading channel files: %w", err)
	}

	if hdr.Version == 1.0 {
		if _, err = hs.field(2); err != nil {
			return nil, fmt.Errorf("error reading header: %w", err)
		}
	}

	if hdr.EventTimeFile, err = hs.field(2); err != nil {
		return nil, fmt.Errorf("error reading event time file: %w", err)
	}
	if hdr.EventCodeFile, err = hs.field(2); err != nil {
		return nil, fmt.Errorf("error reading event code file: %w", err)
	}

	if hdr.EventCount, err = hs.intField("event count"); err != nil {
		return nil, err
	}

	if _, err = hs.field(1); err != nil {
		return nil, fmt.Errorf("error reading channel names: %w", err)
	}
	if hdr.ChannelNames, err = hs.lines(hdr.ChannelCount); err != nil {
		return nil, fmt.Errorf("error reading channel names: %w", err)
	}

	return hdr, nil
}

func (hs *headerScanner) intField(name string) (int, error) {
	s, err := hs.field(2)
	if err != nil {
		return 0, fmt.Errorf("error reading %s: %w", name, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("error parsing %s on line %d: %w", name, hs.line, err)
	}
	return v, nil
}
