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
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/btsniff/pkg/models"
	"github.com/carverauto/btsniff/pkg/session"
)

const (
	liveTickInterval = time.Second
	liveMinHeight    = 5
	liveChrome       = 6
	liveNameWidth    = 24
)

type deviceMsg struct {
	rec models.DeviceRecord
}

type scanDoneMsg struct{}

type tickMsg time.Time

// liveModel renders a table of devices that updates as sightings arrive.
type liveModel struct {
	table   table.Model
	styles  styles
	mode    session.Mode
	started time.Time
	now     func() time.Time
	cancel  context.CancelFunc
	index   map[string]int
	rows    []table.Row
	done    bool
	stopped bool
}

func newLiveModel(out io.Writer, mode session.Mode, now func() time.Time, cancel context.CancelFunc) *liveModel {
	r := lipgloss.NewRenderer(out)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Address", Width: 17},
			{Title: "Transport", Width: 9},
			{Title: "Name", Width: liveNameWidth},
			{Title: "RSSI", Width: 5},
			{Title: "Seen", Width: 6},
			{Title: "Services", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(liveMinHeight*2),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaComment)).
		BorderBottom(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(draculaForeground)).
		Background(lipgloss.Color(draculaPurple))
	t.SetStyles(s)

	return &liveModel{
		table:   t,
		styles:  newStyles(r),
		mode:    mode,
		started: now(),
		now:     now,
		cancel:  cancel,
		index:   make(map[string]int),
	}
}

func tick() tea.Cmd {
	return tea.Tick(liveTickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (*liveModel) Init() tea.Cmd {
	return tick()
}

func (m *liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.stopped {
				m.stopped = true
				m.cancel()
			}

			return m, nil
		}

	case tea.WindowSizeMsg:
		h := msg.Height - liveChrome
		if h < liveMinHeight {
			h = liveMinHeight
		}

		m.table.SetHeight(h)

		return m, nil

	case deviceMsg:
		m.upsert(&msg.rec)

		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}

		return m, tick()

	case scanDoneMsg:
		m.done = true

		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *liveModel) upsert(rec *models.DeviceRecord) {
	row := table.Row{
		rec.Address,
		string(rec.Transport),
		truncate(orNone(rec.Name), liveNameWidth),
		intOrNone(rec.RSSI),
		strconv.Itoa(rec.Sightings),
		strconv.Itoa(len(rec.ServiceUUIDs)),
	}

	if i, ok := m.index[rec.Address]; ok {
		m.rows[i] = row
	} else {
		m.index[rec.Address] = len(m.rows)
		m.rows = append(m.rows, row)
	}

	m.table.SetRows(m.rows)
}

func (m *liveModel) View() string {
	status := "scanning"
	if m.stopped {
		status = "stopping"
	}

	header := m.styles.title.Render("btsniff") + " " + m.styles.muted.Render(fmt.Sprintf(
		"mode %s · %d device(s) · %s · %s",
		m.mode, len(m.rows), m.now().Sub(m.started).Truncate(time.Second), status))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.table.View(),
		"",
		m.styles.muted.Render("↑/↓ scroll · q stop scan and export"),
	) + "\n"
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}

	return string(r[:width-1]) + "…"
}
