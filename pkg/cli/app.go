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

// Package cli implements the btsniff command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/carverauto/btsniff/pkg/export"
	"github.com/carverauto/btsniff/pkg/lifecycle"
	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
	"github.com/carverauto/btsniff/pkg/scan"
	"github.com/carverauto/btsniff/pkg/session"
	"github.com/carverauto/btsniff/pkg/version"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ScannerConstructor matches scan.New.
type ScannerConstructor func(transport models.Transport, backend scan.Backend, log logger.Logger) (scan.Scanner, error)

// App wires the command line to a scan session and the exporter.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// LogWriter receives structured logs. Nil selects the configured output.
	LogWriter  io.Writer
	Now        func() time.Time
	NewScanner ScannerConstructor
}

func NewApp() *App {
	return &App{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Now:        time.Now,
		NewScanner: scan.New,
	}
}

// Run executes one scan for args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	out := newConsole(a.Stdout)
	errOut := newConsole(a.Stderr)

	cfg, err := ParseFlags(args, a.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitOK
	}

	if err != nil {
		errOut.fail("%v", err)
		errOut.info("run btsniff -h for usage")

		return ExitConfig
	}

	if cfg.Version {
		fmt.Fprintln(a.Stdout, "btsniff", version.GetFullVersion())
		return ExitOK
	}

	log, err := a.newLogger(cfg)
	if err != nil {
		errOut.fail("%v", err)
		return ExitConfig
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		program  *tea.Program
		observer session.Observer
	)

	switch {
	case cfg.Live:
		program = tea.NewProgram(newLiveModel(a.Stdout, cfg.Mode, a.Now, cancel), tea.WithOutput(a.Stdout))
		observer = func(_ models.Transport, rec *models.DeviceRecord) {
			program.Send(deviceMsg{rec: *rec})
		}
	case cfg.Verbose:
		observer = out.echo
	}

	factory := func(transport models.Transport) (scan.Scanner, error) {
		return a.NewScanner(transport, cfg.BLEBackend, log)
	}

	sess, err := session.New(cfg.SessionConfig(), factory, log, session.WithObserver(observer), session.WithClock(a.Now))
	if err != nil {
		errOut.fail("%v", err)
		return ExitConfig
	}

	if err := sess.Prepare(); err != nil {
		errOut.fail("mode %s is not available: %v", cfg.Mode, err)
		return ExitConfig
	}

	adapter := cfg.Adapter
	if adapter == "" {
		adapter = "(default)"
	}

	out.info("%s", hostBanner())
	out.info("Mode: %s  Duration: %ds per mode  Adapter: %s  Backend: %s", cfg.Mode, cfg.Seconds, adapter, cfg.BLEBackend)
	out.info("Session %s started at: %s", sess.ID(), a.Now().UTC().Format(time.RFC3339))

	var report *session.Report

	if program != nil {
		report, err = a.runLive(runCtx, program, sess, log)
	} else {
		report, err = sess.Run(runCtx)
	}

	if report == nil {
		errOut.fail("scan failed: %v", err)
		return ExitFailure
	}

	a.printPhases(out, report)

	if err != nil {
		errOut.fail("%v", err)
		return ExitFailure
	}

	if len(report.Records) == 0 {
		out.info("No devices discovered.")
	} else {
		out.info("Total unique devices: %d", len(report.Records))
	}

	targets, defaulted := cfg.Targets(a.Now())
	results := export.Export(report.Records, targets, log)

	for i := range results {
		r := &results[i]

		switch {
		case r.Err != nil:
			errOut.fail("Failed to write %s %s: %v", formatName(r.Format), r.Path, r.Err)
		case defaulted:
			out.info("No output path provided. Wrote default JSON: %s", r.Path)
		default:
			out.success("Wrote %s: %s (%d records)", formatName(r.Format), r.Path, r.Records)
		}
	}

	if err := export.Failed(results); err != nil {
		return ExitFailure
	}

	return ExitOK
}

func (a *App) newLogger(cfg *CmdConfig) (logger.Logger, error) {
	config := logger.DefaultConfig()
	if cfg.Debug {
		config.Debug = true
	}

	log, err := lifecycle.CreateComponentLoggerTo("btsniff", config, a.LogWriter)
	if err != nil {
		return nil, err
	}

	// Keep the live table readable.
	if cfg.Live && !cfg.Debug {
		log.SetLevel(zerolog.ErrorLevel)
	}

	return log, nil
}

// runLive drives the session while the live table owns the terminal.
func (*App) runLive(
	ctx context.Context, program *tea.Program, sess *session.Session, log logger.Logger) (*session.Report, error) {
	programDone := make(chan error, 1)

	go func() {
		_, err := program.Run()
		programDone <- err
	}()

	report, err := sess.Run(ctx)

	program.Send(scanDoneMsg{})

	if perr := <-programDone; perr != nil && !errors.Is(perr, tea.ErrProgramKilled) {
		log.Warn().Err(perr).Msg("Live view exited with an error")
	}

	return report, err
}

func (*App) printPhases(out *console, report *session.Report) {
	for i := range report.Phases {
		p := &report.Phases[i]

		name := "BLE"
		if p.Transport == models.TransportClassic {
			name = "Classic Inquiry"
		}

		if p.Err != nil {
			out.warn("%s scan failed: %v", name, p.Err)
			continue
		}

		out.info("%s scan complete: %d device(s) in %s", name, p.Devices, p.Elapsed().Truncate(time.Millisecond))
	}
}

func formatName(f export.Format) string {
	return strings.ToUpper(string(f))
}
