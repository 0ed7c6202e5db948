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

package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var ErrUnknownOutput = errors.New("unknown log output")

// DefaultConfig reads logging settings from the environment. Logs go to
// stderr so they never interleave with exported data on stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("DEBUG", false),
		Output:     getEnvOrDefault("LOG_OUTPUT", "stderr"),
		Format:     getEnvOrDefault("LOG_FORMAT", FormatConsole),
		TimeFormat: getEnvOrDefault("LOG_TIME_FORMAT", ""),
	}
}

// ParseLevel resolves the effective level. Debug overrides Level.
func (c *Config) ParseLevel() (zerolog.Level, error) {
	if c.Debug {
		return zerolog.DebugLevel, nil
	}

	if c.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(strings.ToLower(c.Level))
}

// Writer returns the sink named by Output, wrapped in a console writer
// unless Format asks for JSON lines.
func (c *Config) Writer() (io.Writer, error) {
	var output io.Writer

	switch strings.ToLower(c.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, c.Output)
	}

	if strings.EqualFold(c.Format, FormatJSON) {
		return output, nil
	}

	cw := zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	if c.TimeFormat != "" {
		cw.TimeFormat = c.TimeFormat
	}

	return cw, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}
