// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package epd_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/OpenPSG/trialseg"
	"github.com/OpenPSG/trialseg/epd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(version string) string {
	lines := []string{
		"EPD header", "Version:", version,
		"", "Channels:", "2",
		"", "Sampling frequency (Hz):", "500",
		"", "Samples:", "4",
		"", "Channel files:", "s01_Fz.dat", "s01_Cz.dat",
	}
	if version == "1.0" {
		lines = append(lines, "", "Reserved:", "unused")
	}
	lines = append(lines,
		"", "Event timestamps:", "s01_times.dat",
		"", "Event codes:", "s01_codes.dat",
		"", "Events:", "3",
		"", "Channel names:", "Fz", "Cz",
	)
	return strings.Join(lines, "\n") + "\n"
}

func float32s(v ...float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func int32s(v ...int32) []byte {
	b := make([]byte, 4*len(v))
	for i, n := range v {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(n))
	}
	return b
}

func testFS(version string) fstest.MapFS {
	return fstest.MapFS{
		"s01/s01.epd":       {Data: []byte(header(version))},
		"s01/s01_Fz.dat":    {Data: float32s(1, 2, 3, 4)},
		"s01/s01_Cz.dat":    {Data: float32s(-1, -2, -3, -4.5)},
		"s01/s01_times.dat": {Data: int32s(3, 0, 1)},
		"s01/s01_codes.dat": {Data: int32s(200, 100, 101)},
	}
}

func TestReadHeader(t *testing.T) {
	hdr, err := epd.ReadHeader(strings.NewReader(header("2.0")))
	require.NoError(t, err)

	assert.Equal(t, 2.0, hdr.Version)
	assert.Equal(t, 2, hdr.ChannelCount)
	assert.Equal(t, 500.0, hdr.SamplingRate)
	assert.Equal(t, 4, hdr.SampleCount)
	assert.Equal(t, []string{"s01_Fz.dat", "s01_Cz.dat"}, hdr.ChannelFiles)
	assert.Equal(t, "s01_times.dat", hdr.EventTimeFile)
	assert.Equal(t, "s01_codes.dat", hdr.EventCodeFile)
	assert.Equal(t, 3, hdr.EventCount)
	assert.Equal(t, []string{"Fz", "Cz"}, hdr.ChannelNames)
}

func TestReadHeaderTruncated(t *testing.T) {
	h := header("2.0")
	_, err := epd.ReadHeader(strings.NewReader(h[:len(h)/2]))
	require.Error(t, err)

	_, err = epd.ReadHeader(strings.NewReader("EPD\nVersion:\nnot-a-number\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	for _, version := range []string{"1.0", "2.0"} {
		t.Run(version, func(t *testing.T) {
			rec, err := epd.Load(testFS(version), "s01/s01.epd")
			require.NoError(t, err)

			channels, samples := rec.Dims()
			assert.Equal(t, 2, channels)
			assert.Equal(t, 4, samples)
			assert.Equal(t, 500.0, rec.SamplingRate)
			assert.Equal(t, []float64{1, 2, 3, 4}, rec.Samples.RawRowView(0))
			assert.Equal(t, []float64{-1, -2, -3, -4.5}, rec.Samples.RawRowView(1))
			assert.Equal(t, []int{3, 0, 1}, rec.EventTimes)
			assert.Equal(t, []trialseg.Code{200, 100, 101}, rec.EventCodes)
			assert.Equal(t, []string{"Fz", "Cz"}, rec.ChannelNames())
			assert.Equal(t, "s01", rec.Metadata[epd.MetaDir])
		})
	}
}

func TestLoadShapeMismatch(t *testing.T) {
	fsys := testFS("2.0")
	fsys["s01/s01_codes.dat"] = &fstest.MapFile{Data: int32s(200, 100)}

	_, err := epd.Load(fsys, "s01/s01.epd")
	require.ErrorIs(t, err, trialseg.ErrShapeMismatch)

	fsys = testFS("2.0")
	fsys["s01/s01_Cz.dat"] = &fstest.MapFile{Data: float32s(1, 2, 3)}

	_, err = epd.Load(fsys, "s01/s01.epd")
	require.ErrorIs(t, err, trialseg.ErrShapeMismatch)
}

func TestLoadEventOutOfRange(t *testing.T) {
	fsys := testFS("2.0")
	fsys["s01/s01_times.dat"] = &fstest.MapFile{Data: int32s(3, 0, 4)}

	_, err := epd.Load(fsys, "s01/s01.epd")
	require.ErrorIs(t, err, trialseg.ErrRange)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for name, f := range testFS("2.0") {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, filepath.Dir(name)), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), f.Data, 0o644))
	}

	rec, err := epd.Open(filepath.Join(dir, "s01", "s01.epd"))
	require.NoError(t, err)

	tl, err := trialseg.NewTimeline(rec)
	require.NoError(t, err)

	trials := tl.Segment(trialseg.NewCodeSet(100), trialseg.NewCodeSet(200))
	require.Len(t, trials, 1)
	assert.Equal(t, 0, trials[0].Start())
	assert.Equal(t, 4, trials[0].End())
}
