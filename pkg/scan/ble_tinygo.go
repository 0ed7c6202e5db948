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

package scan

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

const stopRetryInterval = 100 * time.Millisecond

// deviceDetails supplies advertisement fields that the platform backend
// does not expose on a scan result.
type deviceDetails interface {
	lookup(addr string) advertisingFields
	close()
}

type noDeviceDetails struct{}

func (noDeviceDetails) lookup(string) advertisingFields { return advertisingFields{} }

func (noDeviceDetails) close() {}

// tinyGoScanner listens for BLE advertisements through tinygo.org/x/bluetooth.
type tinyGoScanner struct {
	logger logger.Logger
}

func newTinyGoScanner(log logger.Logger) *tinyGoScanner {
	return &tinyGoScanner{logger: log}
}

func (*tinyGoScanner) Transport() models.Transport {
	return models.TransportBLE
}

func (s *tinyGoScanner) Scan(ctx context.Context, opts Options) (<-chan models.Sighting, error) {
	adapter, err := openTinyGoAdapter(opts.Adapter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdapterInit, err)
	}

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", ErrAdapterInit, err)
	}

	details := openDeviceDetails(opts.Adapter, s.logger)

	out := make(chan models.Sighting, sightingBuffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		defer close(done)
		defer details.close()

		err := adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if ctx.Err() != nil {
				return
			}

			select {
			case out <- fromScanResult(&result, time.Now(), details):
			case <-ctx.Done():
			}
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("BLE scan stopped with error")
		}
	}()

	go s.stopWhenDone(ctx, adapter, done)

	s.logger.Info().Str("backend", string(BackendTinyGo)).Str("adapter", adapterLabel(opts.Adapter)).Msg("BLE scan started")

	return out, nil
}

// stopWhenDone stops the scan once ctx ends. StopScan fails if the scan
// loop has not started yet, so it is retried until the loop exits.
func (s *tinyGoScanner) stopWhenDone(ctx context.Context, adapter *bluetooth.Adapter, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	ticker := time.NewTicker(stopRetryInterval)
	defer ticker.Stop()

	for {
		err := adapter.StopScan()
		if err == nil {
			return
		}

		s.logger.Debug().Err(err).Msg("StopScan failed, retrying")

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// fromScanResult converts a tinygo scan result. The payload is only valid
// during the callback, so byte slices are copied. When the platform hands
// over pre-parsed fields instead of the raw packet, service UUIDs, TX power
// and appearance come from details.
func fromScanResult(result *bluetooth.ScanResult, ts time.Time, details deviceDetails) models.Sighting {
	s := models.Sighting{
		Transport:   models.TransportBLE,
		Address:     result.Address.String(),
		Timestamp:   ts,
		Name:        result.LocalName(),
		RSSI:        models.Ptr(int(result.RSSI)),
		AddressType: tinyGoAddressType(result.Address),
	}

	if md := result.ManufacturerData(); len(md) > 0 {
		s.ManufacturerData = make(map[string][]byte, len(md))
		for _, el := range md {
			s.ManufacturerData[strconv.Itoa(int(el.CompanyID))] = bytes.Clone(el.Data)
		}
	}

	if sd := result.ServiceData(); len(sd) > 0 {
		s.ServiceData = make(map[string][]byte, len(sd))
		for _, el := range sd {
			s.ServiceData[NormalizeUUID(el.UUID.String())] = bytes.Clone(el.Data)
		}
	}

	var fields advertisingFields
	if raw := result.Bytes(); len(raw) > 0 {
		fields = parseAdvertisingData(raw)
	} else {
		fields = details.lookup(s.Address)
	}

	s.ServiceUUIDs = fields.ServiceUUIDs
	s.TxPower = fields.TxPower
	s.Appearance = fields.Appearance

	return s
}

func adapterLabel(name string) string {
	if name == "" {
		return "(default)"
	}

	return name
}
