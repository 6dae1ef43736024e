// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package report summarizes extracted windows for the trialseg command.
package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/OpenPSG/trialseg"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats holds descriptive statistics of one channel within a window.
type ChannelStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// WindowSummary describes one extracted window.
type WindowSummary struct {
	Index    int
	Start    int
	End      int
	Channels []ChannelStats
}

// Summarize computes per channel statistics of every window using up to
// workers goroutines. Summaries are returned in window order.
func Summarize(ctx context.Context, windows []trialseg.Window, workers int) ([]WindowSummary, error) {
	summaries := make([]WindowSummary, len(windows))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, w := range windows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summaries[i] = summarize(w)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func summarize(w trialseg.Window) WindowSummary {
	channels, _ := w.Dims()
	s := WindowSummary{
		Index:    w.Index,
		Start:    w.Start,
		End:      w.End,
		Channels: make([]ChannelStats, channels),
	}
	if w.Len() == 0 {
		return s
	}

	for ch := range s.Channels {
		row := w.Channel(ch)
		cs := ChannelStats{Min: floats.Min(row), Max: floats.Max(row)}
		if len(row) > 1 {
			cs.Mean, cs.StdDev = stat.MeanStdDev(row, nil)
		} else {
			cs.Mean = row[0]
		}
		s.Channels[ch] = cs
	}
	return s
}

// Print writes a table of summaries. Channel statistics are averaged over
// channels to keep one line per window.
func Print(w io.Writer, title string, summaries []WindowSummary, samplingRate float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s: %s windows\n", title, humanize.Comma(int64(len(summaries))))
	fmt.Fprintln(tw, "#\tstart\tend\tsamples\tseconds\tmean\tstddev\t")
	for _, s := range summaries {
		var mean, sd float64
		for _, cs := range s.Channels {
			mean += cs.Mean
			sd += cs.StdDev
		}
		if n := float64(len(s.Channels)); n > 0 {
			mean, sd = mean/n, sd/n
		}

		seconds := 0.0
		if samplingRate > 0 {
			seconds = float64(s.End-s.Start) / samplingRate
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t\n", s.Index,
			humanize.Comma(int64(s.Start)), humanize.Comma(int64(s.End)),
			humanize.Comma(int64(s.End-s.Start)), seconds, mean, sd)
	}

	return tw.Flush()
}
