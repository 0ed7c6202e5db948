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
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/carverauto/btsniff/pkg/models"
)

const (
	// ListSeparator joins collection entries inside one CSV cell.
	ListSeparator = ";"
	// PairSeparator splits a map entry into key and value.
	PairSeparator = "="
)

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []models.DeviceRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Fields); err != nil {
		return err
	}

	for i := range records {
		if err := cw.Write(csvRow(&records[i])); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func csvRow(r *models.DeviceRecord) []string {
	return []string{
		r.Address,
		string(r.Transport),
		optString(r.Name),
		optInt(r.RSSI),
		optInt(r.TxPower),
		optInt(r.Appearance),
		optBool(r.Connectable),
		optAddressType(r.AddressType),
		optUint32(r.DeviceClass),
		strings.Join(r.SortedServiceUUIDs(), ListSeparator),
		joinMap(r.ServiceData),
		joinMap(r.ManufacturerData),
		formatTime(r.FirstSeen),
		formatTime(r.LastSeen),
		strconv.Itoa(r.Sightings),
	}
}

// joinMap flattens m into sorted key=value pairs.
func joinMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+PairSeparator+m[k])
	}

	return strings.Join(pairs, ListSeparator)
}

func optString(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}

	return strconv.Itoa(*p)
}

func optUint32(p *uint32) string {
	if p == nil {
		return ""
	}

	return strconv.FormatUint(uint64(*p), 10)
}

func optBool(p *bool) string {
	if p == nil {
		return ""
	}

	return strconv.FormatBool(*p)
}

func optAddressType(p *models.AddressType) string {
	if p == nil {
		return ""
	}

	return string(*p)
}
