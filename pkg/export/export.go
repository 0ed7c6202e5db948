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

// Package export writes device record snapshots as JSON or CSV.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// TimestampLayout renders timestamps as ISO-8601 with an explicit offset.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

const (
	defaultFileMode    os.FileMode = 0o644
	defaultNameLayout              = "20060102-150405"
	defaultPathPrefix              = "bt_scan_"
	defaultPathPostfix             = ".json"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrEmptyPath     = errors.New("export path is empty")
)

// Fields lists the record fields in output order. It is both the JSON key
// set and the CSV header.
var Fields = []string{
	"address",
	"transport",
	"name",
	"rssi",
	"tx_power",
	"appearance",
	"connectable",
	"address_type",
	"device_class",
	"service_uuids",
	"service_data",
	"manufacturer_data",
	"first_seen",
	"last_seen",
	"sightings",
}

// ParseFormat converts a format name into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DefaultPath is the JSON destination used when no output is requested.
func DefaultPath(now time.Time) string {
	return defaultPathPrefix + now.Format(defaultNameLayout) + defaultPathPostfix
}

// Write encodes records in the given format.
func Write(w io.Writer, format Format, records []models.DeviceRecord) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ToFile writes records to path. The destination only changes once the
// whole snapshot has been written and flushed; on error the previous file,
// if any, is left untouched.
func ToFile(path string, format Format, records []models.DeviceRecord) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(defaultFileMode))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		_ = pf.Cleanup()
	}()

	bw := bufio.NewWriter(pf)

	if err := Write(bw, format, records); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit %s: %w", path, err)
	}

	return nil
}

// Target is one requested output file.
type Target struct {
	Path   string
	Format Format
}

// Result reports the outcome for one Target.
type Result struct {
	Target
	Records int
	Err     error
}

// Export writes the same snapshot to every target. A failed target does
// not stop the remaining ones.
func Export(records []models.DeviceRecord, targets []Target, log logger.Logger) []Result {
	results := make([]Result, 0, len(targets))

	for _, t := range targets {
		err := ToFile(t.Path, t.Format, records)
		if err != nil {
			log.Error().
				Err(err).
				Str("path", t.Path).
				Str("format", string(t.Format)).
				Msg("Export failed")
		} else {
			log.Debug().
				Str("path", t.Path).
				Str("format", string(t.Format)).
				Int("records", len(records)).
				Msg("Export written")
		}

		results = append(results, Result{Target: t, Records: len(records), Err: err})
	}

	return results
}

// Failed returns the joined errors of every failed result, or nil.
func Failed(results []Result) error {
	var errs []error

	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}

	return errors.Join(errs...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
