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
	"context"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

const detailsTimeout = 500 * time.Millisecond

// openTinyGoAdapter opens the named BlueZ adapter.
func openTinyGoAdapter(name string) (*bluetooth.Adapter, error) {
	if name == "" {
		return bluetooth.DefaultAdapter, nil
	}

	id, err := hciDeviceID(name)
	if err != nil {
		return nil, err
	}

	return bluetooth.NewAdapter(hciName(id)), nil
}

// tinyGoAddressType reports the address type BlueZ attached to the
// advertiser.
func tinyGoAddressType(addr bluetooth.Address) *models.AddressType {
	if addr.IsRandom() {
		return models.Ptr(models.AddressRandom)
	}

	return models.Ptr(models.AddressPublic)
}

// bluezDetails reads org.bluez.Device1 properties for advertisers. tinygo
// drops the service UUID list, TX power and appearance that BlueZ keeps on
// the device object.
type bluezDetails struct {
	conn        *dbus.Conn
	adapterPath string
	logger      logger.Logger
}

func openDeviceDetails(adapter string, log logger.Logger) deviceDetails {
	name, err := bluezAdapterName(adapter)
	if err != nil {
		return noDeviceDetails{}
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Warn().Err(err).Msg("BlueZ device properties unavailable, service UUIDs will be missing")
		return noDeviceDetails{}
	}

	return &bluezDetails{conn: conn, adapterPath: bluezRoot + name, logger: log}
}

func (d *bluezDetails) lookup(addr string) advertisingFields {
	path := dbus.ObjectPath(d.adapterPath + "/dev_" + strings.ReplaceAll(strings.ToUpper(addr), ":", "_"))

	ctx, cancel := context.WithTimeout(context.Background(), detailsTimeout)
	defer cancel()

	var props map[string]dbus.Variant

	err := d.conn.Object(bluezService, path).CallWithContext(ctx, propertiesIface+".GetAll", 0, deviceIface).Store(&props)
	if err != nil {
		d.logger.Debug().Err(err).Str("path", string(path)).Msg("Failed to read device properties")
		return advertisingFields{}
	}

	return deviceFields(props)
}

func (d *bluezDetails) close() {
	_ = d.conn.Close()
}

// deviceFields extracts the advertisement fields BlueZ caches on a device.
func deviceFields(props map[string]dbus.Variant) advertisingFields {
	var f advertisingFields

	if uuids, ok := variantValue[[]string](props, "UUIDs"); ok {
		for _, u := range uuids {
			if u = NormalizeUUID(u); u != "" {
				f.ServiceUUIDs = append(f.ServiceUUIDs, u)
			}
		}
	}

	if tx, ok := variantValue[int16](props, "TxPower"); ok {
		f.TxPower = models.Ptr(int(tx))
	}

	if app, ok := variantValue[uint16](props, "Appearance"); ok {
		f.Appearance = models.Ptr(int(app))
	}

	return f
}
