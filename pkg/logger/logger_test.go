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
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(&Config{Level: "debug", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	log.Debug().Str("address", "AA:BB:CC:DD:EE:FF").Msg("sighting")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", line["address"])
	assert.Equal(t, "sighting", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "chatty"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   zerolog.Level
	}{
		{"empty", Config{}, zerolog.InfoLevel},
		{"warn", Config{Level: "warn"}, zerolog.WarnLevel},
		{"upper", Config{Level: "ERROR"}, zerolog.ErrorLevel},
		{"debug overrides", Config{Level: "error", Debug: true}, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.config.ParseLevel()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter(t *testing.T) {
	w, err := (&Config{Output: "stdout", Format: FormatJSON}).Writer()
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)

	w, err = (&Config{}).Writer()
	require.NoError(t, err)
	assert.IsType(t, zerolog.ConsoleWriter{}, w)

	_, err = (&Config{Output: "syslog"}).Writer()
	require.ErrorIs(t, err, ErrUnknownOutput)
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_OUTPUT", "")
	t.Setenv("DEBUG", "yes")

	config := DefaultConfig()

	assert.Equal(t, "info", config.Level)
	assert.Equal(t, "stderr", config.Output)
	assert.Equal(t, FormatConsole, config.Format)
	assert.True(t, config.Debug)
}

func TestTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()

	log.Info().Msg("dropped")
	log.SetLevel(zerolog.DebugLevel)

	assert.NotNil(t, log.WithComponent("scan"))
}
