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
	"net"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux/hci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/btsniff/pkg/models"
)

// reportAdvertisement stands in for *hci.Advertisement: TxPowerLevel
// reports 0 when the field is absent, as go-ble does.
type reportAdvertisement struct {
	addr        ble.Addr
	addrType    uint8
	connectable bool
	name        string
	rssi        int
	services    []ble.UUID
	serviceData []ble.ServiceData
	mfr         []byte
	data        []byte
	scanResp    []byte
}

func (a *reportAdvertisement) LocalName() string              { return a.name }
func (a *reportAdvertisement) ManufacturerData() []byte       { return a.mfr }
func (a *reportAdvertisement) ServiceData() []ble.ServiceData { return a.serviceData }
func (a *reportAdvertisement) Services() []ble.UUID           { return a.services }
func (a *reportAdvertisement) OverflowService() []ble.UUID    { return nil }
func (*reportAdvertisement) TxPowerLevel() int                { return 0 }
func (a *reportAdvertisement) Connectable() bool              { return a.connectable }
func (*reportAdvertisement) SolicitedService() []ble.UUID     { return nil }
func (a *reportAdvertisement) RSSI() int                      { return a.rssi }
func (a *reportAdvertisement) Addr() ble.Addr                 { return a.addr }
func (a *reportAdvertisement) AddressType() uint8             { return a.addrType }
func (a *reportAdvertisement) Data() []byte                   { return a.data }
func (a *reportAdvertisement) ScanResponse() []byte           { return a.scanResp }

// portableAdvertisement implements only ble.Advertisement.
type portableAdvertisement struct {
	addr ble.Addr
}

func (*portableAdvertisement) LocalName() string              { return "" }
func (*portableAdvertisement) ManufacturerData() []byte       { return nil }
func (*portableAdvertisement) ServiceData() []ble.ServiceData { return nil }
func (*portableAdvertisement) Services() []ble.UUID           { return nil }
func (*portableAdvertisement) OverflowService() []ble.UUID    { return nil }
func (*portableAdvertisement) TxPowerLevel() int              { return 0 }
func (*portableAdvertisement) Connectable() bool              { return false }
func (*portableAdvertisement) SolicitedService() []ble.UUID   { return nil }
func (*portableAdvertisement) RSSI() int                      { return -80 }
func (a *portableAdvertisement) Addr() ble.Addr               { return a.addr }

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()

	mac, err := net.ParseMAC(s)
	require.NoError(t, err)

	return mac
}

func TestFromAdvertisementWithoutTxPower(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	a := &reportAdvertisement{
		addr:        mustMAC(t, "aa:bb:cc:dd:ee:ff"),
		addrType:    1,
		connectable: true,
		name:        "Tile Tracker",
		rssi:        -62,
		services:    []ble.UUID{ble.UUID16(0x180f)},
		serviceData: []ble.ServiceData{{UUID: ble.UUID16(0x180f), Data: []byte{0x64}}},
		mfr:         []byte{0x4c, 0x00, 0x02, 0x15},
		data: []byte{
			0x02, 0x01, 0x06, // flags
			0x03, 0x03, 0x0f, 0x18, // complete 16-bit UUIDs: 180f
		},
	}

	s := fromAdvertisement(a, ts)

	assert.Equal(t, models.TransportBLE, s.Transport)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", s.Address)
	assert.Equal(t, ts, s.Timestamp)
	assert.Equal(t, "Tile Tracker", s.Name)
	require.NotNil(t, s.RSSI)
	assert.Equal(t, -62, *s.RSSI)
	require.NotNil(t, s.Connectable)
	assert.True(t, *s.Connectable)
	require.NotNil(t, s.AddressType)
	assert.Equal(t, models.AddressRandom, *s.AddressType)
	assert.Nil(t, s.TxPower)
	assert.Nil(t, s.Appearance)
	assert.Equal(t, []string{"180f"}, s.ServiceUUIDs)
	assert.Equal(t, []byte{0x64}, s.ServiceData["180f"])
	assert.Equal(t, map[string][]byte{"76": {0x02, 0x15}}, s.ManufacturerData)
}

func TestFromAdvertisementReadsScanResponse(t *testing.T) {
	a := &reportAdvertisement{
		addr:     mustMAC(t, "11:22:33:44:55:66"),
		addrType: 0,
		data:     []byte{0x02, 0x0a, 0xf8}, // TX power: -8
		scanResp: []byte{0x03, 0x19, 0x00, 0x02}, // appearance: 0x0200
	}

	s := fromAdvertisement(a, time.Now())

	require.NotNil(t, s.AddressType)
	assert.Equal(t, models.AddressPublic, *s.AddressType)
	require.NotNil(t, s.Connectable)
	assert.False(t, *s.Connectable)
	require.NotNil(t, s.TxPower)
	assert.Equal(t, -8, *s.TxPower)
	require.NotNil(t, s.Appearance)
	assert.Equal(t, 0x0200, *s.Appearance)
	assert.Nil(t, s.ManufacturerData)
}

func TestFromPortableAdvertisement(t *testing.T) {
	s := fromAdvertisement(&portableAdvertisement{
		addr: hci.RandomAddress{Addr: mustMAC(t, "aa:bb:cc:dd:ee:ff")},
	}, time.Now())

	require.NotNil(t, s.AddressType)
	assert.Equal(t, models.AddressRandom, *s.AddressType)
	assert.Nil(t, s.TxPower)
	assert.Nil(t, s.Appearance)

	s = fromAdvertisement(&portableAdvertisement{addr: mustMAC(t, "11:22:33:44:55:66")}, time.Now())
	assert.Nil(t, s.AddressType)
}
