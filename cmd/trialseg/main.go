// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command trialseg divides a subject's recording into trials and reports
// the extracted windows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/OpenPSG/trialseg"
	"github.com/OpenPSG/trialseg/edf"
	"github.com/OpenPSG/trialseg/epd"
	"github.com/OpenPSG/trialseg/internal/config"
	"github.com/OpenPSG/trialseg/internal/log"
	"github.com/OpenPSG/trialseg/internal/report"
)

func main() {
	cfgFile := flag.String("config", "trialseg.yaml", "Path to the YAML configuration file")
	subject := flag.String("subject", "", "Subject name, also the recording file name")
	exportEDF := flag.String("export-edf", "", "Write the recording, as loaded, to this EDF file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -subject NAME [-config FILE] [-export-edf FILE] [-debug]\n", os.Args[0])
		os.Exit(2)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("error loading config %s: %v", *cfgFile, err)
	}
	if *exportEDF != "" {
		cfg.Output.EDFPath = *exportEDF
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *subject, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, subject string, out io.Writer) error {
	path := cfg.RecordingPath(subject)
	rec, err := loadRecording(cfg.Dataset.Format, path)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}

	tl, err := trialseg.NewTimeline(rec, trialseg.WithLogger(log.Logger()))
	if err != nil {
		return err
	}
	log.Infow("Loaded recording",
		"path", path,
		"channels", tl.ChannelCount(),
		"samples", tl.SampleCount(),
		"sampling_rate", tl.SamplingRate(),
		"events", len(tl.Events()))

	start, end := cfg.Trial.StartCodes.Set(), cfg.Trial.EndCodes.Set()
	if err := reportTrials(ctx, tl, cfg, cfg.Trial.Name, start, end, out); err != nil {
		return err
	}

	if se := cfg.Trial.SyntheticEnd; se != nil {
		if tl.HasCode(se.Code) {
			log.Warnw("Synthetic end code is already present in the recording", "code", se.Code)
		}

		offset := config.Samples(se.OffsetSeconds, tl.SamplingRate())
		times, codes := trialseg.OffsetEvents(tl.Events(), start, offset, se.Code)
		times, codes = inRange(times, codes, tl.SampleCount())
		if err := tl.AddEvents(times, codes); err != nil {
			return fmt.Errorf("error adding synthetic end markers: %w", err)
		}

		name := fmt.Sprintf("%s (+%gs)", cfg.Trial.Name, se.OffsetSeconds)
		if err := reportTrials(ctx, tl, cfg, name, start, trialseg.NewCodeSet(se.Code), out); err != nil {
			return err
		}
	}

	for _, ew := range cfg.EventWindows {
		windowLen := config.Samples(ew.WindowSeconds, tl.SamplingRate())
		windows, err := tl.EventWindows(ew.Code, windowLen)
		if err != nil {
			return fmt.Errorf("error extracting windows around code %d: %w", ew.Code, err)
		}
		if err := summarize(ctx, cfg, fmt.Sprintf("code %d (%gs)", ew.Code, ew.WindowSeconds), windows, tl.SamplingRate(), out); err != nil {
			return err
		}
	}

	if cfg.Output.EDFPath != "" {
		if err := exportRecording(cfg.Output.EDFPath, rec, subject); err != nil {
			return fmt.Errorf("error exporting %s: %w", cfg.Output.EDFPath, err)
		}
		log.Infow("Exported recording", "path", cfg.Output.EDFPath)
	}

	return nil
}

// inRange drops synthetic events that fall outside the recording.
func inRange(times []int, codes []trialseg.Code, samples int) ([]int, []trialseg.Code) {
	keptTimes, keptCodes := times[:0], codes[:0]
	for i, tm := range times {
		if tm < 0 || tm >= samples {
			log.Warnw("Dropping synthetic event outside the recording",
				"sample", tm, "code", codes[i], "samples", samples)
			continue
		}
		keptTimes = append(keptTimes, tm)
		keptCodes = append(keptCodes, codes[i])
	}
	return keptTimes, keptCodes
}

func loadRecording(format, path string) (*trialseg.Recording, error) {
	if format == config.FormatEDF {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return edf.Load(f)
	}
	return epd.Open(path)
}

func reportTrials(ctx context.Context, tl *trialseg.Timeline, cfg *config.Config, name string, start, end trialseg.CodeSet, out io.Writer) error {
	windows, trials, err := tl.TrialWindows(start, end)
	if err != nil {
		return fmt.Errorf("error extracting trials %q: %w", name, err)
	}
	for _, tr := range trials {
		log.Debugw("Trial", "start", tr.Start(), "end", tr.End(), "codes", tr.Codes())
	}
	return summarize(ctx, cfg, name, windows, tl.SamplingRate(), out)
}

func summarize(ctx context.Context, cfg *config.Config, title string, windows []trialseg.Window, samplingRate float64, out io.Writer) error {
	summaries, err := report.Summarize(ctx, windows, cfg.Summary.Workers)
	if err != nil {
		return err
	}
	return report.Print(out, title, summaries, samplingRate)
}

func exportRecording(path string, rec *trialseg.Recording, subject string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = edf.WriteRecording(f, rec, edf.ExportOptions{
		PatientID:         subject,
		RecordingID:       subject,
		StartTime:         time.Now(),
		PhysicalDimension: "uV",
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
