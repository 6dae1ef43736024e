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
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/OpenPSG/trialseg"
	"gonum.org/v1/gonum/floats"
)

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	physical    [][2]string // Physical min and max header fields per signal.
	dataRecords int         // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
//
// The physical range of each signal is widened to the nearest values that fit
// the 8 character header fields, and samples are encoded against that range,
// so a reader decodes them with the calibration that was used to write them.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.SignalCount = len(hdr.Signals)
	hdr.Signals = slices.Clone(hdr.Signals)

	ew := &Writer{w: w, hdr: &hdr, physical: make([][2]string, len(hdr.Signals))}
	for i := range hdr.Signals {
		sig := &hdr.Signals[i]
		minField, pmin, err := physicalField(sig.PhysicalMin, false)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		maxField, pmax, err := physicalField(sig.PhysicalMax, true)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		sig.PhysicalMin, sig.PhysicalMax = pmin, pmax
		ew.physical[i] = [2]string{minField, maxField}
	}

	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record to the EDF file.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	var totalSamples int
	for i, signal := range signals {
		if len(signal) != ew.hdr.Signals[i].SamplesPerRecord {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, ew.hdr.Signals[i].SamplesPerRecord, len(signal))
		}
		totalSamples += len(signal)
	}
	if totalSamples*2 > maxRecordBytes {
		return fmt.Errorf("data record too large: %d bytes, max is %d bytes", totalSamples*2, maxRecordBytes)
	}

	if _, err := ew.w.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)
	buf := make([]byte, 2)
	for i, signal := range signals {
		sig := ew.hdr.Signals[i]
		for _, sample := range signal {
			digital := convertPhysicalToDigital(sample, sig.PhysicalMin, sig.PhysicalMax, sig.DigitalMin, sig.DigitalMax)
			binary.LittleEndian.PutUint16(buf, uint16(digital))
			if _, err := writer.Write(buf); err != nil {
				return err
			}
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// fieldWriter writes space padded ASCII header fields, keeping the first error.
type fieldWriter struct {
	w   *bufio.Writer
	err error
}

// str writes a text field, cut to width.
func (fw *fieldWriter) str(width int, s string) {
	if len(s) > width {
		s = s[:width]
	}
	fw.numeric(width, s)
}

// numeric writes a field that must not be cut.
func (fw *fieldWriter) numeric(width int, s string) {
	if fw.err != nil {
		return
	}
	if len(s) > width {
		fw.err = fmt.Errorf("value %q does not fit a %d character field", s, width)
		return
	}
	_, fw.err = fmt.Fprintf(fw.w, "%-*s", width, s)
}

func (fw *fieldWriter) integer(width, v int) {
	fw.numeric(width, strconv.Itoa(v))
}

// physicalField formats v for an 8 character physical min or max field with
// as many decimals as fit, rounding down, or up when roundUp is set. It
// returns the field and the value a reader will parse from it.
func physicalField(v float64, roundUp bool) (string, float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", 0, fmt.Errorf("invalid physical value %g", v)
	}

	for decimals := 7; decimals >= 0; decimals-- {
		scale := math.Pow10(decimals)
		k := math.Floor(v * scale)
		if roundUp {
			k = math.Ceil(v * scale)
		}

		for range 2 {
			x := k / scale
			if x == 0 {
				x = 0 // no negative zero
			}
			s := strconv.FormatFloat(x, 'f', decimals, 64)
			if len(s) > 8 {
				break
			}
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return "", 0, err
			}
			if (roundUp && parsed >= v) || (!roundUp && parsed <= v) {
				return s, parsed, nil
			}
			// v * scale rounded across an integer, step one unit outwards.
			if roundUp {
				k++
			} else {
				k--
			}
		}
	}

	return "", 0, fmt.Errorf("physical value %g does not fit an 8 character field", v)
}

func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	hdr := ew.hdr
	hdr.HeaderBytes = fixedHeaderBytes + hdr.SignalCount*signalHeaderBytes

	fw := &fieldWriter{w: bufio.NewWriter(ew.w)}
	fw.str(8, string(hdr.Version))
	fw.str(80, hdr.PatientID)
	fw.str(80, hdr.RecordingID)
	fw.str(8, hdr.StartTime.Format("02.01.06"))
	fw.str(8, hdr.StartTime.Format("15.04.05"))
	fw.integer(8, hdr.HeaderBytes)
	fw.str(44, "")
	fw.integer(8, hdr.DataRecords)
	fw.integer(8, int(math.Ceil(hdr.DataRecordDuration.Seconds())))
	fw.integer(4, hdr.SignalCount)

	for _, sig := range hdr.Signals {
		fw.str(16, sig.Label)
	}
	for _, sig := range hdr.Signals {
		fw.str(80, sig.TransducerType)
	}
	for _, sig := range hdr.Signals {
		fw.str(8, sig.PhysicalDimension)
	}
	for _, field := range ew.physical {
		fw.numeric(8, field[0])
	}
	for _, field := range ew.physical {
		fw.numeric(8, field[1])
	}
	for _, sig := range hdr.Signals {
		fw.integer(8, sig.DigitalMin)
	}
	for _, sig := range hdr.Signals {
		fw.integer(8, sig.DigitalMax)
	}
	for _, sig := range hdr.Signals {
		fw.str(80, sig.Prefiltering)
	}
	for _, sig := range hdr.Signals {
		fw.integer(8, sig.SamplesPerRecord)
	}
	for range hdr.Signals {
		fw.str(32, "")
	}

	if fw.err != nil {
		return fw.err
	}
	return fw.w.Flush()
}

// convertPhysicalToDigital converts a physical value to a digital value using
// the calibration factors, clamping to the digital range.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round((physical-pmin)*float64(dmax-dmin)/(pmax-pmin)) + float64(dmin)
	return int16(max(float64(dmin), min(float64(dmax), digital)))
}

// ExportOptions describes the EDF header fields a recording does not carry.
type ExportOptions struct {
	PatientID         string
	RecordingID       string
	StartTime         time.Time
	PhysicalDimension string // e.g. uV
}

// WriteRecording writes a recording as one second data records. The sampling
// rate must be a whole number of samples per second. The last record is padded
// with zeros.
func WriteRecording(w io.WriteSeeker, rec *trialseg.Recording, opts ExportOptions) error {
	channels, samples := rec.Dims()
	if channels == 0 || samples == 0 {
		return fmt.Errorf("recording holds no samples")
	}

	spr := int(rec.SamplingRate)
	if spr <= 0 || float64(spr) != rec.SamplingRate {
		return fmt.Errorf("sampling rate %gHz is not a whole number of samples per second", rec.SamplingRate)
	}

	names := rec.ChannelNames()
	hdr := Header{
		Version:            Version0,
		PatientID:          opts.PatientID,
		RecordingID:        opts.RecordingID,
		StartTime:          opts.StartTime,
		DataRecordDuration: time.Second,
		Signals:            make([]Signal, channels),
	}
	for i := range hdr.Signals {
		row := rec.Samples.RawRowView(i)
		pmin, pmax := floats.Min(row), floats.Max(row)
		if pmin == pmax {
			pmin, pmax = pmin-1, pmax+1
		}

		label := fmt.Sprintf("CH%d", i+1)
		if i < len(names) {
			label = names[i]
		}

		hdr.Signals[i] = Signal{
			Label:             label,
			PhysicalDimension: opts.PhysicalDimension,
			PhysicalMin:       pmin,
			PhysicalMax:       pmax,
			DigitalMin:        math.MinInt16,
			DigitalMax:        math.MaxInt16,
			SamplesPerRecord:  spr,
		}
	}

	ew, err := Create(w, hdr)
	if err != nil {
		return err
	}

	record := make([][]float64, channels)
	for i := range record {
		record[i] = make([]float64, spr)
	}
	for start := 0; start < samples; start += spr {
		for i := range record {
			n := copy(record[i], rec.Samples.RawRowView(i)[start:])
			clear(record[i][n:])
		}
		if err := ew.WriteRecord(record); err != nil {
			return fmt.Errorf("error writing data record %d: %w", start/spr, err)
		}
	}

	return ew.Close()
}
