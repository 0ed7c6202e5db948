/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides structured logging using zerolog
package logger

import (
	"io"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	Format     string `json:"format" yaml:"format"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// New builds a zerolog logger from config, writing to w when it is non-nil
// and to the configured output otherwise.
func New(config *Config, w io.Writer) (zerolog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := config.ParseLevel()
	if err != nil {
		return zerolog.Nop(), err
	}

	if w == nil {
		w, err = config.Writer()
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
