// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package trialseg

import "gonum.org/v1/gonum/mat"

// Window is a read-only view of the sample columns [Start, End) of every
// channel. It shares storage with the recording and implements mat.Matrix.
type Window struct {
	Index int // Position of the trial or event occurrence
	Start int // First sample, inclusive
	End   int // Last sample, exclusive

	src *mat.Dense
}

// Len returns the number of samples per channel.
func (w Window) Len() int { return w.End - w.Start }

// Dims returns the number of channels and samples in the window.
func (w Window) Dims() (r, c int) {
	r, _ = w.src.Dims()
	return r, w.Len()
}

// At returns the sample of channel i at offset j from the window start.
func (w Window) At(i, j int) float64 {
	if j < 0 || j >= w.Len() {
		panic(mat.ErrColAccess)
	}
	return w.src.At(i, w.Start+j)
}

// T returns the transpose of the window.
func (w Window) T() mat.Matrix {
	return mat.Transpose{Matrix: w}
}

// Channel returns the samples of channel i. The slice aliases the recording
// and must not be modified.
func (w Window) Channel(i int) []float64 {
	if w.Len() == 0 {
		return nil
	}
	row := w.src.RawRowView(i)
	return row[w.Start:w.End:w.End]
}

// Dense returns the window as a gonum slice of the recording, or nil when the
// window is empty.
func (w Window) Dense() *mat.Dense {
	r, c := w.Dims()
	if r == 0 || c == 0 {
		return nil
	}
	return w.src.Slice(0, r, w.Start, w.End).(*mat.Dense)
}
