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

// Package models provides the data models shared by the scanners, the
// sighting aggregator and the exporters.
package models

import (
	"sort"
	"strings"
	"time"
)

// Transport identifies the Bluetooth radio mode a device was discovered on.
type Transport string

const (
	TransportBLE     Transport = "BLE"
	TransportClassic Transport = "Classic"
)

// AddressType is the BLE advertiser address type.
type AddressType string

const (
	AddressPublic AddressType = "public"
	AddressRandom AddressType = "random"
)

// DeviceRecord is the accumulated state of one device address within a
// scan session. Pointer fields are nil until a sighting carries a value for
// them; fields that do not apply to Transport stay nil for the record's
// lifetime.
type DeviceRecord struct {
	Address          string
	Transport        Transport
	Name             *string
	RSSI             *int
	TxPower          *int
	Appearance       *int
	Connectable      *bool
	AddressType      *AddressType
	DeviceClass      *uint32
	ServiceUUIDs     map[string]struct{}
	ServiceData      map[string]string
	ManufacturerData map[string]string
	FirstSeen        time.Time
	LastSeen         time.Time
	Sightings        int
}

// NormalizeAddress returns the canonical map key for a hardware address.
func NormalizeAddress(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}

// SortedServiceUUIDs returns the UUID set as a sorted slice. It never
// returns nil.
func (r *DeviceRecord) SortedServiceUUIDs() []string {
	out := make([]string, 0, len(r.ServiceUUIDs))
	for u := range r.ServiceUUIDs {
		out = append(out, u)
	}

	sort.Strings(out)

	return out
}

// Clone returns a deep copy of the record. The copy shares no pointers or
// maps with the original.
func (r *DeviceRecord) Clone() DeviceRecord {
	c := DeviceRecord{
		Address:          r.Address,
		Transport:        r.Transport,
		Name:             clonePtr(r.Name),
		RSSI:             clonePtr(r.RSSI),
		TxPower:          clonePtr(r.TxPower),
		Appearance:       clonePtr(r.Appearance),
		Connectable:      clonePtr(r.Connectable),
		AddressType:      clonePtr(r.AddressType),
		DeviceClass:      clonePtr(r.DeviceClass),
		ServiceUUIDs:     make(map[string]struct{}, len(r.ServiceUUIDs)),
		ServiceData:      make(map[string]string, len(r.ServiceData)),
		ManufacturerData: make(map[string]string, len(r.ManufacturerData)),
		FirstSeen:        r.FirstSeen,
		LastSeen:         r.LastSeen,
		Sightings:        r.Sightings,
	}

	for u := range r.ServiceUUIDs {
		c.ServiceUUIDs[u] = struct{}{}
	}

	for k, v := range r.ServiceData {
		c.ServiceData[k] = v
	}

	for k, v := range r.ManufacturerData {
		c.ManufacturerData[k] = v
	}

	return c
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
