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

package models

import "time"

// Sighting is one raw observation emitted by a scanner. Optional payload
// fields are nil (or empty) when the advertisement or inquiry response did
// not carry them.
type Sighting struct {
	Transport Transport
	Address   string
	Timestamp time.Time

	Name string
	RSSI *int

	// BLE only.
	TxPower          *int
	Appearance       *int
	Connectable      *bool
	AddressType      *AddressType
	ServiceUUIDs     []string
	ServiceData      map[string][]byte
	ManufacturerData map[string][]byte

	// Classic only.
	DeviceClass *uint32
}
