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

package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
	"github.com/carverauto/btsniff/pkg/scan"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

type testApp struct {
	*App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestApp returns an App whose scanners come from scanners, keyed by
// transport. Transports without an entry are unsupported.
func newTestApp(t *testing.T, scanners map[models.Transport]scan.Scanner) *testApp {
	t.Helper()
	clearEnv(t)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	return &testApp{
		App: &App{
			Stdout:    stdout,
			Stderr:    stderr,
			LogWriter: io.Discard,
			Now:       func() time.Time { return t0 },
			NewScanner: func(transport models.Transport, _ scan.Backend, _ logger.Logger) (scan.Scanner, error) {
				if s, ok := scanners[transport]; ok {
					return s, nil
				}

				return nil, scan.ErrUnsupportedPlatform
			},
		},
		stdout: stdout,
		stderr: stderr,
	}
}

func streamOf(events ...models.Sighting) func(context.Context, scan.Options) (<-chan models.Sighting, error) {
	return func(context.Context, scan.Options) (<-chan models.Sighting, error) {
		ch := make(chan models.Sighting, len(events))
		for _, e := range events {
			ch <- e
		}

		close(ch)

		return ch, nil
	}
}

func mockScanner(ctrl *gomock.Controller, transport models.Transport) *scan.MockScanner {
	m := scan.NewMockScanner(ctrl)
	m.EXPECT().Transport().Return(transport).AnyTimes()

	return m
}

func tileTracker() models.Sighting {
	return models.Sighting{
		Transport:    models.TransportBLE,
		Address:      "AA:BB:CC:DD:EE:FF",
		Timestamp:    t0,
		Name:         "Tile Tracker",
		RSSI:         models.Ptr(-62),
		ServiceUUIDs: []string{"feed"},
	}
}

func speaker() models.Sighting {
	return models.Sighting{
		Transport:   models.TransportClassic,
		Address:     "11:22:33:44:55:66",
		Timestamp:   t0.Add(time.Second),
		Name:        "Living Room",
		DeviceClass: models.Ptr(uint32(0x240414)),
	}
}

func TestRunWritesBothFormats(t *testing.T) {
	ctrl := gomock.NewController(t)

	ble := mockScanner(ctrl, models.TransportBLE)
	classic := mockScanner(ctrl, models.TransportClassic)
	ble.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(streamOf(tileTracker()))
	classic.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(streamOf(speaker()))

	app := newTestApp(t, map[models.Transport]scan.Scanner{
		models.TransportBLE:     ble,
		models.TransportClassic: classic,
	})

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out.json")
	csvPath := filepath.Join(dir, "out.csv")

	code := app.Run(context.Background(), []string{
		"--mode", "both", "--seconds", "1", "--json", jsonPath, "--csv", csvPath,
	})
	require.Equal(t, ExitOK, code, app.stderr.String())

	var rows []map[string]any

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.Len(t, rows, 2)

	f, err := os.Open(csvPath)
	require.NoError(t, err)

	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	out := app.stdout.String()
	assert.Contains(t, out, "BLE scan complete: 1 device(s)")
	assert.Contains(t, out, "Classic Inquiry scan complete: 1 device(s)")
	assert.Contains(t, out, "Total unique devices: 2")
	assert.Contains(t, out, "Wrote JSON: "+jsonPath)
	assert.Contains(t, out, "Wrote CSV: "+csvPath)
}

func TestRunDefaultsToTimestampedJSON(t *testing.T) {
	ctrl := gomock.NewController(t)

	ble := mockScanner(ctrl, models.TransportBLE)
	ble.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(streamOf(tileTracker()))

	app := newTestApp(t, map[models.Transport]scan.Scanner{models.TransportBLE: ble})

	dir := t.TempDir()
	t.Chdir(dir)

	code := app.Run(context.Background(), []string{"--mode", "ble", "--seconds", "1"})
	require.Equal(t, ExitOK, code, app.stderr.String())

	_, err := os.Stat(filepath.Join(dir, "bt_scan_20250314-092653.json"))
	require.NoError(t, err)
	assert.Contains(t, app.stdout.String(), "No output path provided. Wrote default JSON: bt_scan_20250314-092653.json")
}

func TestRunReportsUnwritableOutputButWritesTheOther(t *testing.T) {
	ctrl := gomock.NewController(t)

	ble := mockScanner(ctrl, models.TransportBLE)
	ble.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(streamOf(tileTracker()))

	app := newTestApp(t, map[models.Transport]scan.Scanner{models.TransportBLE: ble})

	dir := t.TempDir()
	bad := filepath.Join(dir, "missing", "out.json")
	good := filepath.Join(dir, "out.csv")

	code := app.Run(context.Background(), []string{"--mode", "ble", "--seconds", "1", "--json", bad, "--csv", good})
	assert.Equal(t, ExitFailure, code)

	_, err := os.Stat(good)
	require.NoError(t, err)

	_, err = os.Stat(bad)
	require.True(t, errors.Is(err, os.ErrNotExist))

	assert.Contains(t, app.stderr.String(), "Failed to write JSON "+bad)
}

func TestRunVerboseEchoesSightings(t *testing.T) {
	ctrl := gomock.NewController(t)

	ble := mockScanner(ctrl, models.TransportBLE)
	classic := mockScanner(ctrl, models.TransportClassic)
	ble.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(streamOf(tileTracker()))
	classic.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(streamOf(speaker()))

	app := newTestApp(t, map[models.Transport]scan.Scanner{
		models.TransportBLE:     ble,
		models.TransportClassic: classic,
	})

	code := app.Run(context.Background(), []string{
		"--mode", "both", "--seconds", "1", "--verbose", "--json", filepath.Join(t.TempDir(), "out.json"),
	})
	require.Equal(t, ExitOK, code)

	out := app.stdout.String()
	assert.Contains(t, out, "[BLE] AA:BB:CC:DD:EE:FF  RSSI=-62  Name=Tile Tracker  Services=1")
	assert.Contains(t, out, "[BR/EDR] 11:22:33:44:55:66  Name=Living Room  CoD=0x240414")
}

func TestRunUnsupportedModeIsConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Scan must not be called: the Classic phase is rejected up front.
	ble := mockScanner(ctrl, models.TransportBLE)

	app := newTestApp(t, map[models.Transport]scan.Scanner{models.TransportBLE: ble})

	code := app.Run(context.Background(), []string{"--mode", "both", "--seconds", "1"})
	assert.Equal(t, ExitConfig, code)
	assert.Contains(t, app.stderr.String(), "mode both is not available")
}

func TestRunNoPhaseSucceeded(t *testing.T) {
	ctrl := gomock.NewController(t)

	ble := mockScanner(ctrl, models.TransportBLE)
	ble.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(nil, scan.ErrAdapterInit)

	app := newTestApp(t, map[models.Transport]scan.Scanner{models.TransportBLE: ble})

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out.json")

	code := app.Run(context.Background(), []string{"--mode", "ble", "--seconds", "1", "--json", jsonPath})
	assert.Equal(t, ExitFailure, code)

	_, err := os.Stat(jsonPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, app.stdout.String(), "BLE scan failed")
}

func TestRunBadFlagsIsConfigError(t *testing.T) {
	app := newTestApp(t, nil)

	assert.Equal(t, ExitConfig, app.Run(context.Background(), []string{"--seconds", "5"}))
	assert.Contains(t, app.stderr.String(), "--mode is required")
}

func TestRunHelpAndVersion(t *testing.T) {
	app := newTestApp(t, nil)

	assert.Equal(t, ExitOK, app.Run(context.Background(), []string{"-h"}))
	assert.Contains(t, app.stderr.String(), "Exit status")

	assert.Equal(t, ExitOK, app.Run(context.Background(), []string{"--version"}))
	assert.Contains(t, app.stdout.String(), "btsniff dev")
}
