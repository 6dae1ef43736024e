// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package epd

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/OpenPSG/trialseg"
	"gonum.org/v1/gonum/mat"
)

// Metadata keys set by Load, besides trialseg.MetaChannelNames.
const (
	MetaVersion       = "epd_ver"
	MetaDir           = "epd_dir"
	MetaChannelFiles  = "chan_fnames"
	MetaEventTimeFile = "event_time_fname"
	MetaEventCodeFile = "event_code_fname"
)

// Open loads the EPD recording whose header is at filename.
func Open(filename string) (*trialseg.Recording, error) {
	rec, err := Load(os.DirFS(filepath.Dir(filename)), filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	rec.Metadata[MetaDir] = filepath.Dir(filename)
	return rec, nil
}

// Load loads an EPD recording from fsys. Sidecar files are resolved relative
// to the directory of the header.
func Load(fsys fs.FS, name string) (*trialseg.Recording, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("error opening header: %w", err)
	}
	defer f.Close()

	hdr, err := ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing EPD header %s: %w", name, err)
	}

	dir := path.Dir(name)
	sidecar := func(fname string) string {
		return path.Join(dir, strings.TrimSpace(fname))
	}

	times, err := readInt32s(fsys, sidecar(hdr.EventTimeFile))
	if err != nil {
		return nil, fmt.Errorf("error loading event times: %w", err)
	}
	codes, err := readInt32s(fsys, sidecar(hdr.EventCodeFile))
	if err != nil {
		return nil, fmt.Errorf("error loading event codes: %w", err)
	}
	if len(times) != len(codes) {
		return nil, fmt.Errorf("%w: %d event times, %d event codes", trialseg.ErrShapeMismatch, len(times), len(codes))
	}
	if len(times) != hdr.EventCount {
		return nil, fmt.Errorf("%w: header declares %d events, found %d", trialseg.ErrShapeMismatch, hdr.EventCount, len(times))
	}

	rec := &trialseg.Recording{
		SamplingRate: hdr.SamplingRate,
		EventTimes:   make([]int, len(times)),
		EventCodes:   make([]trialseg.Code, len(codes)),
		Metadata: map[string]any{
			MetaVersion:               hdr.Version,
			MetaDir:                   dir,
			MetaChannelFiles:          hdr.ChannelFiles,
			MetaEventTimeFile:         hdr.EventTimeFile,
			MetaEventCodeFile:         hdr.EventCodeFile,
			trialseg.MetaChannelNames: hdr.ChannelNames,
		},
	}
	for i := range times {
		rec.EventTimes[i] = int(times[i])
		rec.EventCodes[i] = trialseg.Code(codes[i])
	}

	if hdr.ChannelCount > 0 && hdr.SampleCount > 0 {
		rec.Samples = mat.NewDense(hdr.ChannelCount, hdr.SampleCount, nil)
		for i, fname := range hdr.ChannelFiles {
			if err := readChannel(fsys, sidecar(fname), rec.Samples.RawRowView(i)); err != nil {
				return nil, fmt.Errorf("error loading channel %d: %w", i, err)
			}
		}
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("error validating recording: %w", err)
	}

	return rec, nil
}

func readInt32s(fsys fs.FS, name string) ([]int32, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of 4", name, len(b))
	}

	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// readChannel decodes little endian float32 samples into row.
func readChannel(fsys fs.FS, name string, row []float64) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	if len(b) != len(row)*4 {
		return fmt.Errorf("%w: %s holds %d bytes, expected %d samples", trialseg.ErrShapeMismatch, name, len(b), len(row))
	}

	for i := range row {
		row[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return nil
}
