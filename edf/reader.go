// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/trialseg"
	"gonum.org/v1/gonum/mat"
)

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// fieldReader reads space padded ASCII header fields, keeping the first error.
type fieldReader struct {
	r   *bufio.Reader
	err error
}

func (fr *fieldReader) str(width int) string {
	if fr.err != nil {
		return ""
	}
	b := make([]byte, width)
	if _, err := io.ReadFull(fr.r, b); err != nil {
		fr.err = err
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (fr *fieldReader) integer(width int, name string) int {
	s := fr.str(width)
	if fr.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		fr.err = fmt.Errorf("error parsing %s: %w", name, err)
	}
	return v
}

// lenient numeric fields in the signal headers
func (fr *fieldReader) float(width int) float64 {
	f, _ := strconv.ParseFloat(fr.str(width), 64)
	return f
}

// Open parses the header of an EDF/EDF+ file.
func Open(r io.ReadSeeker) (*Reader, error) {
	fr := &fieldReader{r: bufio.NewReader(r)}

	hdr := &Header{}
	hdr.Version = Version(fr.str(8))
	hdr.PatientID = fr.str(80)
	hdr.RecordingID = fr.str(80)
	dateStr := fr.str(8)
	timeStr := fr.str(8)
	hdr.HeaderBytes = fr.integer(8, "header bytes")
	fr.str(44)
	hdr.DataRecords = fr.integer(8, "number of data records")
	durationStr := fr.str(8)
	hdr.SignalCount = fr.integer(4, "signal count")
	if fr.err != nil {
		return nil, fmt.Errorf("error reading header: %w", fr.err)
	}

	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	hdr.DataRecordDuration, err = time.ParseDuration(durationStr + "s")
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}

	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("invalid signal count %d", hdr.SignalCount)
	}

	// Signal headers are stored field by field, each field for every signal.
	sigs := make([]Signal, hdr.SignalCount)
	for i := range sigs {
		sigs[i].Label = fr.str(16)
	}
	for i := range sigs {
		sigs[i].TransducerType = fr.str(80)
	}
	for i := range sigs {
		sigs[i].PhysicalDimension = fr.str(8)
	}
	for i := range sigs {
		sigs[i].PhysicalMin = fr.float(8)
	}
	for i := range sigs {
		sigs[i].PhysicalMax = fr.float(8)
	}
	for i := range sigs {
		sigs[i].DigitalMin = int(fr.float(8))
	}
	for i := range sigs {
		sigs[i].DigitalMax = int(fr.float(8))
	}
	for i := range sigs {
		sigs[i].Prefiltering = fr.str(80)
	}
	for i := range sigs {
		sigs[i].SamplesPerRecord = int(fr.float(8))
	}
	for i := range sigs {
		sigs[i].Reserved = fr.str(32)
	}
	if fr.err != nil {
		return nil, fmt.Errorf("error reading signal headers: %w", fr.err)
	}
	hdr.Signals = sigs

	return &Reader{r: r, hdr: hdr}, nil
}

// Header returns a copy of the parsed header.
func (er *Reader) Header() Header {
	hdr := *er.hdr
	hdr.Signals = slices.Clone(er.hdr.Signals)
	return hdr
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r             io.ReadSeeker
	hdr           *Header
	signal        Signal
	currentRecord int       // Next record to load
	recordSize    int       // Total size of one data record
	signalOffset  int       // Byte offset of the signal in a record
	buf           []byte    // Raw samples of the loaded record
	samples       []float64 // Physical samples of the loaded record
	pos           int       // Next sample in samples
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index %d out of range", signalIndex)
	}

	signal := er.hdr.Signals[signalIndex]
	recordSize, signalOffset := er.hdr.recordSize(signalIndex)

	return &SignalReader{
		r:            er.r,
		hdr:          er.hdr,
		signal:       signal,
		recordSize:   recordSize,
		signalOffset: signalOffset,
		buf:          make([]byte, signal.SamplesPerRecord*2),
	}, nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	n := 0
	for n < len(data) {
		if sr.pos >= len(sr.samples) {
			if err := sr.loadRecord(); err != nil {
				return n, err
			}
		}

		copied := copy(data[n:], sr.samples[sr.pos:])
		sr.pos += copied
		n += copied
	}

	return n, nil
}

func (sr *SignalReader) loadRecord() error {
	if sr.currentRecord >= sr.hdr.DataRecords || len(sr.buf) == 0 {
		return io.EOF
	}

	pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) + int64(sr.signalOffset)
	if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to position: %w", err)
	}
	if _, err := io.ReadFull(sr.r, sr.buf); err != nil {
		return fmt.Errorf("error reading sample data: %w", err)
	}

	if sr.samples == nil {
		sr.samples = make([]float64, sr.signal.SamplesPerRecord)
	}
	for i := range sr.samples {
		digital := int16(binary.LittleEndian.Uint16(sr.buf[i*2:]))
		sr.samples[i] = convertDigitalToPhysical(digital, sr.signal.DigitalMin, sr.signal.DigitalMax, sr.signal.PhysicalMin, sr.signal.PhysicalMax)
	}

	sr.currentRecord++
	sr.pos = 0
	return nil
}

// Load reads every signal of an EDF file into a recording. All signals must
// share one sampling rate. EDF files carry no event marks of their own, they
// can be attached afterwards with Timeline.AddEvents.
func Load(r io.ReadSeeker) (*trialseg.Recording, error) {
	er, err := Open(r)
	if err != nil {
		return nil, err
	}

	if er.hdr.DataRecords < 0 {
		return nil, fmt.Errorf("unknown number of data records")
	}
	rate, err := er.hdr.SamplingRate()
	if err != nil {
		return nil, fmt.Errorf("error computing sampling rate: %w", err)
	}

	labels := make([]string, len(er.hdr.Signals))
	for i, sig := range er.hdr.Signals {
		labels[i] = sig.Label
	}

	rec := &trialseg.Recording{
		SamplingRate: rate,
		Metadata: map[string]any{
			trialseg.MetaChannelNames: labels,
			MetaPatientID:             er.hdr.PatientID,
			MetaRecordingID:           er.hdr.RecordingID,
			MetaStartTime:             er.hdr.StartTime,
		},
	}

	n := er.hdr.Signals[0].SamplesPerRecord * er.hdr.DataRecords
	if n == 0 {
		return rec, nil
	}

	rec.Samples = mat.NewDense(len(er.hdr.Signals), n, nil)
	for i := range er.hdr.Signals {
		sr, err := er.Signal(i)
		if err != nil {
			return nil, err
		}
		if _, err := sr.Read(rec.Samples.RawRowView(i)); err != nil {
			return nil, fmt.Errorf("error reading signal %d: %w", i, err)
		}
	}

	return rec, nil
}
