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
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// AD structure types from the Bluetooth Assigned Numbers document.
const (
	adIncomplete16  = 0x02
	adComplete16    = 0x03
	adIncomplete32  = 0x04
	adComplete32    = 0x05
	adIncomplete128 = 0x06
	adComplete128   = 0x07
	adTxPower       = 0x0a
	adAppearance    = 0x19
)

const bluetoothBaseTail = "00001000800000805f9b34fb"

// txPowerUnavailable (0x7F) marks a missing TX power level.
const txPowerUnavailable = 127

// advertisingFields holds the values decoded from raw advertising data that
// the BLE libraries do not surface through their own APIs.
type advertisingFields struct {
	ServiceUUIDs []string
	TxPower      *int
	Appearance   *int
}

// parseAdvertisingData walks the length-type-value AD structures in raw.
// Decoding stops at the first truncated structure; anything decoded before
// it is kept.
func parseAdvertisingData(raw []byte) advertisingFields {
	var f advertisingFields

	for len(raw) > 0 {
		n := int(raw[0])
		if n == 0 || n >= len(raw) {
			break
		}

		typ, data := raw[1], raw[2:n+1]
		raw = raw[n+1:]

		switch typ {
		case adIncomplete16, adComplete16:
			for i := 0; i+2 <= len(data); i += 2 {
				f.ServiceUUIDs = append(f.ServiceUUIDs, fmt.Sprintf("%04x", binary.LittleEndian.Uint16(data[i:])))
			}
		case adIncomplete32, adComplete32:
			for i := 0; i+4 <= len(data); i += 4 {
				f.ServiceUUIDs = append(f.ServiceUUIDs, NormalizeUUID(fmt.Sprintf("%08x", binary.LittleEndian.Uint32(data[i:]))))
			}
		case adIncomplete128, adComplete128:
			for i := 0; i+16 <= len(data); i += 16 {
				f.ServiceUUIDs = append(f.ServiceUUIDs, NormalizeUUID(reversedHex(data[i:i+16])))
			}
		case adTxPower:
			if len(data) == 1 && int(data[0]) != txPowerUnavailable {
				v := int(int8(data[0]))
				f.TxPower = &v
			}
		case adAppearance:
			if len(data) == 2 {
				v := int(binary.LittleEndian.Uint16(data))
				f.Appearance = &v
			}
		}
	}

	return f
}

// merge fills the fields f lacks from other. Service UUIDs are appended.
func (f *advertisingFields) merge(other advertisingFields) {
	f.ServiceUUIDs = append(f.ServiceUUIDs, other.ServiceUUIDs...)

	if f.TxPower == nil {
		f.TxPower = other.TxPower
	}

	if f.Appearance == nil {
		f.Appearance = other.Appearance
	}
}

// splitManufacturerData separates the little-endian company identifier
// from the payload of a raw manufacturer specific data field.
func splitManufacturerData(md []byte) (string, []byte, bool) {
	if len(md) < 2 {
		return "", nil, false
	}

	return strconv.Itoa(int(binary.LittleEndian.Uint16(md))), md[2:], true
}

// NormalizeUUID lower-cases a UUID and shortens Bluetooth base UUIDs to
// their 16- or 32-bit form, so "0000180F-0000-1000-8000-00805F9B34FB",
// "0000180f" and "180f" all become "180f". Other 128-bit UUIDs are returned
// in dashed form.
func NormalizeUUID(s string) string {
	u := strings.ToLower(strings.TrimSpace(s))
	compact := strings.ReplaceAll(u, "-", "")

	switch len(compact) {
	case 8:
		return strings.TrimPrefix(compact, "0000")
	case 32:
		if strings.HasSuffix(compact, bluetoothBaseTail) {
			return strings.TrimPrefix(compact[:8], "0000")
		}

		return compact[0:8] + "-" + compact[8:12] + "-" + compact[12:16] + "-" + compact[16:20] + "-" + compact[20:]
	default:
		return compact
	}
}

func reversedHex(b []byte) string {
	var sb strings.Builder

	for i := len(b) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", b[i])
	}

	return sb.String()
}
