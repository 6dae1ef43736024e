// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf converts recordings to and from EDF files.
package edf

import (
	"fmt"
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// Metadata keys set by Load, besides trialseg.MetaChannelNames.
const (
	MetaPatientID   = "edf_patient_id"
	MetaRecordingID = "edf_recording_id"
	MetaStartTime   = "edf_start_time"
)

// Width in bytes of the fixed header and of each per-signal header block.
const (
	fixedHeaderBytes  = 256
	signalHeaderBytes = 256
)

// As recommended by the EDF standard.
const maxRecordBytes = 61440

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// recordSize returns the size in bytes of one data record and the byte offset
// of signal i within it.
func (h *Header) recordSize(i int) (size, offset int) {
	for j, sig := range h.Signals {
		if j < i {
			offset += sig.SamplesPerRecord * 2
		}
		size += sig.SamplesPerRecord * 2
	}
	return size, offset
}

// SamplingRate returns the common sampling rate of all signals.
func (h *Header) SamplingRate() (float64, error) {
	if len(h.Signals) == 0 {
		return 0, fmt.Errorf("no signals")
	}
	if h.DataRecordDuration <= 0 {
		return 0, fmt.Errorf("invalid data record duration %s", h.DataRecordDuration)
	}

	spr := h.Signals[0].SamplesPerRecord
	for i, sig := range h.Signals {
		if sig.SamplesPerRecord != spr {
			return 0, fmt.Errorf("signal %d has %d samples per record, expected %d", i, sig.SamplesPerRecord, spr)
		}
	}

	return float64(spr) / h.DataRecordDuration.Seconds(), nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}
