// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads the YAML configuration of the trialseg command.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/OpenPSG/trialseg"
	"gopkg.in/yaml.v3"
)

// Recording formats.
const (
	FormatEPD = "epd"
	FormatEDF = "edf"
)

// Config describes one segmentation run.
type Config struct {
	Dataset      DatasetConfig       `yaml:"dataset"`
	Trial        TrialConfig         `yaml:"trial"`
	EventWindows []EventWindowConfig `yaml:"event_windows,omitempty"`
	Summary      SummaryConfig       `yaml:"summary,omitempty"`
	Output       OutputConfig        `yaml:"output,omitempty"`
}

// DatasetConfig locates recordings. A subject's recording lives at
// <root_dir>/<subject>/<subject>.<format>.
type DatasetConfig struct {
	RootDir string `yaml:"root_dir"`
	Format  string `yaml:"format,omitempty"`
}

// TrialConfig names the marker codes delimiting the trials of interest.
type TrialConfig struct {
	Name         string              `yaml:"name"`
	StartCodes   CodeList            `yaml:"start_codes"`
	EndCodes     CodeList            `yaml:"end_codes"`
	SyntheticEnd *SyntheticEndConfig `yaml:"synthetic_end,omitempty"`
}

// SyntheticEndConfig adds an end marker a fixed time after every start
// marker, and segments again using it as the only end code.
type SyntheticEndConfig struct {
	Code          trialseg.Code `yaml:"code"`
	OffsetSeconds float64       `yaml:"offset_s"`
}

// EventWindowConfig requests a window around every occurrence of a code.
// Negative lengths select the samples leading up to the event.
type EventWindowConfig struct {
	Code          trialseg.Code `yaml:"code"`
	WindowSeconds float64       `yaml:"window_s"`
}

type SummaryConfig struct {
	Workers int `yaml:"workers,omitempty"`
}

type OutputConfig struct {
	EDFPath string `yaml:"edf_path,omitempty"`
}

// CodeList is a list of marker codes. A single scalar is accepted as well.
type CodeList []trialseg.Code

func (c *CodeList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var code trialseg.Code
		if err := value.Decode(&code); err != nil {
			return err
		}
		*c = CodeList{code}
		return nil
	}

	var codes []trialseg.Code
	if err := value.Decode(&codes); err != nil {
		return err
	}
	*c = codes
	return nil
}

// Set returns the codes as a set.
func (c CodeList) Set() trialseg.CodeSet {
	return trialseg.NewCodeSet(c...)
}

// Load reads and validates a configuration file.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return Parse(b)
}

// Parse decodes and validates a configuration, filling in defaults.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Dataset.Format == "" {
		cfg.Dataset.Format = FormatEPD
	}
	if cfg.Summary.Workers <= 0 {
		cfg.Summary.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Dataset.RootDir == "" {
		errs = append(errs, errors.New("dataset.root_dir is required"))
	}
	if c.Dataset.Format != FormatEPD && c.Dataset.Format != FormatEDF {
		errs = append(errs, fmt.Errorf("dataset.format %q is not one of %q, %q", c.Dataset.Format, FormatEPD, FormatEDF))
	}
	if len(c.Trial.StartCodes) == 0 {
		errs = append(errs, errors.New("trial.start_codes is required"))
	}
	if len(c.Trial.EndCodes) == 0 {
		errs = append(errs, errors.New("trial.end_codes is required"))
	}
	if se := c.Trial.SyntheticEnd; se != nil && se.OffsetSeconds <= 0 {
		errs = append(errs, errors.New("trial.synthetic_end.offset_s must be positive"))
	}

	return errors.Join(errs...)
}

// RecordingPath returns the path of a subject's recording.
func (c *Config) RecordingPath(subject string) string {
	return filepath.Join(c.Dataset.RootDir, subject, subject+"."+c.Dataset.Format)
}

// Samples converts a duration in seconds to a number of samples.
func Samples(seconds, samplingRate float64) int {
	return int(math.Round(seconds * samplingRate))
}
