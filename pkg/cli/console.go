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
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/carverauto/btsniff/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaComment    = "#6272A4"
)

type styles struct {
	info, success, warn, error, ble, classic, muted, title lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info: r.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		success: r.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		warn: r.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		error: r.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		ble: r.NewStyle().
			Foreground(lipgloss.Color(draculaPurple)),
		classic: r.NewStyle().
			Foreground(lipgloss.Color(draculaPink)),
		muted: r.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		title: r.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			Bold(true),
	}
}

// console writes status lines. It is safe for concurrent use so sighting
// echoes from parallel phases do not interleave.
type console struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

func newConsole(out io.Writer) *console {
	return &console{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

func (c *console) line(style lipgloss.Style, tag, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, style.Render(tag)+" "+fmt.Sprintf(format, args...))
}

func (c *console) info(format string, args ...interface{}) {
	c.line(c.styles.info, "[i]", format, args...)
}

func (c *console) success(format string, args ...interface{}) {
	c.line(c.styles.success, "[✓]", format, args...)
}

func (c *console) warn(format string, args ...interface{}) {
	c.line(c.styles.warn, "[!]", format, args...)
}

func (c *console) fail(format string, args ...interface{}) {
	c.line(c.styles.error, "[x]", format, args...)
}

// echo prints one merged sighting.
func (c *console) echo(transport models.Transport, rec *models.DeviceRecord) {
	switch transport {
	case models.TransportClassic:
		c.line(c.styles.classic, "[BR/EDR]", "%s  Name=%s  CoD=%s",
			rec.Address, orNone(rec.Name), classOrNone(rec.DeviceClass))
	default:
		c.line(c.styles.ble, "[BLE]", "%s  RSSI=%s  Name=%s  Services=%d",
			rec.Address, intOrNone(rec.RSSI), orNone(rec.Name), len(rec.ServiceUUIDs))
	}
}

// hostBanner describes the machine the scan runs on.
func hostBanner() string {
	info, err := host.Info()
	if err != nil || info.Platform == "" {
		return fmt.Sprintf("Platform: %s/%s  Go: %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
	}

	return fmt.Sprintf("Platform: %s %s (%s %s, kernel %s)  Go: %s",
		info.Platform, info.PlatformVersion, info.OS, info.KernelArch, info.KernelVersion, runtime.Version())
}

func orNone(s *string) string {
	if s == nil {
		return "None"
	}

	return *s
}

func intOrNone(p *int) string {
	if p == nil {
		return "None"
	}

	return strconv.Itoa(*p)
}

func classOrNone(p *uint32) string {
	if p == nil {
		return "None"
	}

	return fmt.Sprintf("0x%06x", *p)
}
