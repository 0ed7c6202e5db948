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

package session

import (
	"fmt"
	"strings"

	"github.com/carverauto/btsniff/pkg/models"
)

// Mode selects which scan phases run.
type Mode string

const (
	ModeBLE     Mode = "ble"
	ModeClassic Mode = "classic"
	ModeBoth    Mode = "both"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBLE, ModeClassic, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidMode, s)
	}
}

// Transports lists the phases for the mode in run order. BLE goes first.
func (m Mode) Transports() []models.Transport {
	switch m {
	case ModeBLE:
		return []models.Transport{models.TransportBLE}
	case ModeClassic:
		return []models.Transport{models.TransportClassic}
	case ModeBoth:
		return []models.Transport{models.TransportBLE, models.TransportClassic}
	default:
		return nil
	}
}
