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

package export

import (
	"encoding/json"
	"io"

	"github.com/carverauto/btsniff/pkg/models"
)

// jsonRecord is the wire shape of one DeviceRecord. Field order follows
// Fields; nil optionals encode as null.
type jsonRecord struct {
	Address          string              `json:"address"`
	Transport        models.Transport    `json:"transport"`
	Name             *string             `json:"name"`
	RSSI             *int                `json:"rssi"`
	TxPower          *int                `json:"tx_power"`
	Appearance       *int                `json:"appearance"`
	Connectable      *bool               `json:"connectable"`
	AddressType      *models.AddressType `json:"address_type"`
	DeviceClass      *uint32             `json:"device_class"`
	ServiceUUIDs     []string            `json:"service_uuids"`
	ServiceData      map[string]string   `json:"service_data"`
	ManufacturerData map[string]string   `json:"manufacturer_data"`
	FirstSeen        string              `json:"first_seen"`
	LastSeen         string              `json:"last_seen"`
	Sightings        int                 `json:"sightings"`
}

func toJSONRecord(r *models.DeviceRecord) jsonRecord {
	out := jsonRecord{
		Address:          r.Address,
		Transport:        r.Transport,
		Name:             r.Name,
		RSSI:             r.RSSI,
		TxPower:          r.TxPower,
		Appearance:       r.Appearance,
		Connectable:      r.Connectable,
		AddressType:      r.AddressType,
		DeviceClass:      r.DeviceClass,
		ServiceUUIDs:     r.SortedServiceUUIDs(),
		ServiceData:      r.ServiceData,
		ManufacturerData: r.ManufacturerData,
		FirstSeen:        formatTime(r.FirstSeen),
		LastSeen:         formatTime(r.LastSeen),
		Sightings:        r.Sightings,
	}

	if out.ServiceData == nil {
		out.ServiceData = map[string]string{}
	}

	if out.ManufacturerData == nil {
		out.ManufacturerData = map[string]string{}
	}

	return out
}

// WriteJSON encodes records as an indented JSON array.
func WriteJSON(w io.Writer, records []models.DeviceRecord) error {
	rows := make([]jsonRecord, 0, len(records))
	for i := range records {
		rows = append(rows, toJSONRecord(&records[i]))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(rows)
}
