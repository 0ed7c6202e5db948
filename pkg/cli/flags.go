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
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/btsniff/pkg/export"
	"github.com/carverauto/btsniff/pkg/scan"
	"github.com/carverauto/btsniff/pkg/session"
)

// CmdConfig holds the parsed command line.
type CmdConfig struct {
	Mode       session.Mode
	Seconds    int
	Adapter    string
	Verbose    bool
	JSONPath   string
	CSVPath    string
	BLEBackend scan.Backend
	Parallel   bool
	Live       bool
	Debug      bool
	Version    bool
}

// ParseFlags parses args (without the program name). Flags fall back to
// BTSNIFF_* environment variables. flag.ErrHelp is returned for -h.
func ParseFlags(args []string, stderr io.Writer) (*CmdConfig, error) {
	fs := flag.NewFlagSet("btsniff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	mode := fs.String("mode", getEnvOrDefault("BTSNIFF_MODE", ""), "what to scan: ble, classic or both")
	seconds := fs.String("seconds", getEnvOrDefault("BTSNIFF_SECONDS", ""), "scan duration per mode in seconds")
	adapter := fs.String("adapter", getEnvOrDefault("BTSNIFF_ADAPTER", ""), "adapter name, e.g. hci0")
	verbose := fs.Bool("verbose", false, "print sightings as they arrive")
	jsonPath := fs.String("json", "", "write results to this JSON file")
	csvPath := fs.String("csv", "", "write results to this CSV file")
	backend := fs.String("ble-backend", getEnvOrDefault("BTSNIFF_BLE_BACKEND", string(scan.BackendTinyGo)),
		"BLE stack: tinygo or hci")
	parallel := fs.Bool("parallel", false, "run BLE and Classic phases at the same time")
	live := fs.Bool("live", false, "show a live device table while scanning")
	debug := fs.Bool("debug", false, "enable debug logging")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %s", errUnexpectedArgs, strings.Join(fs.Args(), " "))
	}

	cfg := &CmdConfig{
		Adapter:  strings.TrimSpace(*adapter),
		Verbose:  *verbose,
		JSONPath: strings.TrimSpace(*jsonPath),
		CSVPath:  strings.TrimSpace(*csvPath),
		Parallel: *parallel,
		Live:     *live,
		Debug:    *debug,
		Version:  *showVersion,
	}

	if cfg.Version {
		return cfg, nil
	}

	if err := cfg.parseMode(*mode); err != nil {
		return nil, err
	}

	if err := cfg.parseSeconds(*seconds); err != nil {
		return nil, err
	}

	b, err := scan.ParseBackend(*backend)
	if err != nil {
		return nil, err
	}

	cfg.BLEBackend = b

	if cfg.JSONPath != "" && cfg.CSVPath != "" && filepath.Clean(cfg.JSONPath) == filepath.Clean(cfg.CSVPath) {
		return nil, errDuplicateOutput
	}

	return cfg, nil
}

func (c *CmdConfig) parseMode(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errMissingMode
	}

	mode, err := session.ParseMode(raw)
	if err != nil {
		return err
	}

	c.Mode = mode

	return nil
}

func (c *CmdConfig) parseSeconds(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errMissingSeconds
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: got %q", errInvalidSeconds, raw)
	}

	c.Seconds = n

	return nil
}

// SessionConfig converts the command line into a session configuration.
func (c *CmdConfig) SessionConfig() session.Config {
	return session.Config{
		Mode:     c.Mode,
		Duration: time.Duration(c.Seconds) * time.Second,
		Adapter:  c.Adapter,
		Parallel: c.Parallel,
	}
}

// Targets lists the export destinations. When neither --json nor --csv is
// given a timestamped JSON file is used and defaulted is true.
func (c *CmdConfig) Targets(now time.Time) (targets []export.Target, defaulted bool) {
	if c.JSONPath != "" {
		targets = append(targets, export.Target{Path: c.JSONPath, Format: export.FormatJSON})
	}

	if c.CSVPath != "" {
		targets = append(targets, export.Target{Path: c.CSVPath, Format: export.FormatCSV})
	}

	if len(targets) == 0 {
		return []export.Target{{Path: export.DefaultPath(now), Format: export.FormatJSON}}, true
	}

	return targets, false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}
