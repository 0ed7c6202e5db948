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

//go:generate mockgen -destination=mock_scan.go -package=scan github.com/carverauto/btsniff/pkg/scan Scanner

// Package scan adapts third-party Bluetooth stacks into streams of
// models.Sighting values.
package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

// Backend selects the BLE stack.
type Backend string

const (
	// BackendTinyGo uses tinygo.org/x/bluetooth (BlueZ on Linux, CoreBluetooth
	// on macOS, WinRT on Windows).
	BackendTinyGo Backend = "tinygo"
	// BackendHCI drives a raw HCI socket through github.com/go-ble/ble. Linux only.
	BackendHCI Backend = "hci"
)

const sightingBuffer = 256

// Options are passed to a scanner when it starts.
type Options struct {
	// Adapter names the local radio, e.g. "hci0". Empty selects the
	// platform default.
	Adapter string
}

// Scanner produces sightings for one transport.
//
// Scan returns an error if the radio cannot be initialized; no sightings
// are produced in that case. Otherwise the returned channel delivers
// sightings until ctx is done, after which the scanner stops the radio and
// closes the channel.
type Scanner interface {
	Transport() models.Transport
	Scan(ctx context.Context, opts Options) (<-chan models.Sighting, error)
}

// ParseBackend converts a backend name into a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendTinyGo:
		return BackendTinyGo, nil
	case BackendHCI:
		return BackendHCI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// New returns the scanner for a transport. It fails with
// ErrUnsupportedPlatform when the combination cannot run on this OS, so
// callers can reject the configuration before any scanning starts.
func New(transport models.Transport, backend Backend, log logger.Logger) (Scanner, error) {
	switch transport {
	case models.TransportBLE:
		switch backend {
		case "", BackendTinyGo:
			return newTinyGoScanner(log), nil
		case BackendHCI:
			return newHCIScanner(log)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
		}
	case models.TransportClassic:
		return newClassicScanner(log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}
