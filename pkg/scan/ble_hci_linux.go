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

//go:build linux

package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

// hciScanner listens for advertisements on a raw HCI socket. Unlike the
// BlueZ path it sees the advertising PDU type and the TX power field.
type hciScanner struct {
	logger logger.Logger
}

func newHCIScanner(log logger.Logger) (Scanner, error) {
	return &hciScanner{logger: log}, nil
}

func (*hciScanner) Transport() models.Transport {
	return models.TransportBLE
}

func (s *hciScanner) Scan(ctx context.Context, opts Options) (<-chan models.Sighting, error) {
	id, err := hciDeviceID(opts.Adapter)
	if err != nil {
		return nil, err
	}

	dev, err := linux.NewDevice(ble.OptDeviceID(id))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrAdapterInit, hciName(id), err)
	}

	out := make(chan models.Sighting, sightingBuffer)

	go func() {
		defer close(out)

		defer func() {
			if err := dev.Stop(); err != nil {
				s.logger.Debug().Err(err).Msg("Failed to close HCI device")
			}
		}()

		err := dev.Scan(ctx, true, func(a ble.Advertisement) {
			select {
			case out <- fromAdvertisement(a, time.Now()):
			case <-ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error().Err(err).Msg("HCI scan stopped with error")
		}
	}()

	s.logger.Info().Str("backend", string(BackendHCI)).Str("adapter", hciName(id)).Msg("BLE scan started")

	return out, nil
}

// rawAdvertisement is implemented by *hci.Advertisement. TxPowerLevel drops
// the presence flag, so TX power and appearance are decoded from the raw
// advertising data and scan response instead.
type rawAdvertisement interface {
	Data() []byte
	ScanResponse() []byte
}

type addressTyper interface {
	AddressType() uint8
}

func fromAdvertisement(a ble.Advertisement, ts time.Time) models.Sighting {
	s := models.Sighting{
		Transport:   models.TransportBLE,
		Address:     a.Addr().String(),
		Timestamp:   ts,
		Name:        a.LocalName(),
		RSSI:        models.Ptr(a.RSSI()),
		Connectable: models.Ptr(a.Connectable()),
		AddressType: hciAddressType(a),
	}

	if raw, ok := a.(rawAdvertisement); ok {
		fields := parseAdvertisingData(raw.Data())
		fields.merge(parseAdvertisingData(raw.ScanResponse()))

		s.TxPower = fields.TxPower
		s.Appearance = fields.Appearance
	}

	for _, u := range a.Services() {
		s.ServiceUUIDs = append(s.ServiceUUIDs, NormalizeUUID(u.String()))
	}

	if sd := a.ServiceData(); len(sd) > 0 {
		s.ServiceData = make(map[string][]byte, len(sd))
		for _, el := range sd {
			s.ServiceData[NormalizeUUID(el.UUID.String())] = bytes.Clone(el.Data)
		}
	}

	if key, payload, ok := splitManufacturerData(a.ManufacturerData()); ok {
		s.ManufacturerData = map[string][]byte{key: bytes.Clone(payload)}
	}

	return s
}

// hciAddressType maps the LE advertising report address type. Values 2 and
// 3 are the resolved identity forms of public and random addresses.
func hciAddressType(a ble.Advertisement) *models.AddressType {
	if t, ok := a.(addressTyper); ok {
		if t.AddressType()&0x01 == 0 {
			return models.Ptr(models.AddressPublic)
		}

		return models.Ptr(models.AddressRandom)
	}

	if _, ok := a.Addr().(hci.RandomAddress); ok {
		return models.Ptr(models.AddressRandom)
	}

	return nil
}
