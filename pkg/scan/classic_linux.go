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
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

const (
	bluezService       = "org.bluez"
	bluezRoot          = "/org/bluez/"
	adapterIface       = "org.bluez.Adapter1"
	deviceIface        = "org.bluez.Device1"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	propertiesIface    = "org.freedesktop.DBus.Properties"

	interfacesAddedSignal   = objectManagerIface + ".InterfacesAdded"
	propertiesChangedSignal = propertiesIface + ".PropertiesChanged"

	signalBuffer   = 64
	stopTimeout    = 3 * time.Second
	defaultAdapter = "hci0"
)

// classicScanner runs a BR/EDR inquiry through BlueZ and turns the device
// objects it reports into sightings.
type classicScanner struct {
	logger logger.Logger
}

func newClassicScanner(log logger.Logger) (Scanner, error) {
	return &classicScanner{logger: log}, nil
}

func (*classicScanner) Transport() models.Transport {
	return models.TransportClassic
}

func (s *classicScanner) Scan(ctx context.Context, opts Options) (<-chan models.Sighting, error) {
	name, err := bluezAdapterName(opts.Adapter)
	if err != nil {
		return nil, err
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: connect to system bus: %w", ErrAdapterInit, err)
	}

	adapterPath := dbus.ObjectPath(bluezRoot + name)
	adapter := conn.Object(bluezService, adapterPath)

	signals, err := s.subscribe(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrAdapterInit, err)
	}

	filter := map[string]dbus.Variant{"Transport": dbus.MakeVariant("bredr")}

	if err := adapter.CallWithContext(ctx, adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		s.closeConn(conn, signals)
		return nil, fmt.Errorf("%w: set discovery filter on %s: %w", ErrAdapterInit, name, err)
	}

	if err := adapter.CallWithContext(ctx, adapterIface+".StartDiscovery", 0).Err; err != nil {
		s.closeConn(conn, signals)
		return nil, fmt.Errorf("%w: start discovery on %s: %w", ErrAdapterInit, name, err)
	}

	out := make(chan models.Sighting, sightingBuffer)

	go s.run(ctx, conn, adapter, signals, out)

	s.logger.Info().Str("adapter", name).Msg("Classic inquiry started")

	return out, nil
}

// bluezAdapterName resolves the adapter flag to a BlueZ adapter name.
func bluezAdapterName(adapter string) (string, error) {
	if adapter == "" {
		return defaultAdapter, nil
	}

	id, err := hciDeviceID(adapter)
	if err != nil {
		return "", err
	}

	return hciName(id), nil
}

func (*classicScanner) subscribe(conn *dbus.Conn) (chan *dbus.Signal, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchSender(bluezService),
		dbus.WithMatchInterface(objectManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		return nil, fmt.Errorf("subscribe to InterfacesAdded: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchSender(bluezService),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, deviceIface),
	); err != nil {
		return nil, fmt.Errorf("subscribe to PropertiesChanged: %w", err)
	}

	signals := make(chan *dbus.Signal, signalBuffer)
	conn.Signal(signals)

	return signals, nil
}

func (s *classicScanner) run(
	ctx context.Context, conn *dbus.Conn, adapter dbus.BusObject, signals chan *dbus.Signal, out chan<- models.Sighting) {
	defer close(out)
	defer s.closeConn(conn, signals)
	defer s.stopDiscovery(adapter)

	prefix := string(adapter.Path()) + "/"

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}

			if !strings.HasPrefix(string(sig.Path), prefix) && sig.Name != interfacesAddedSignal {
				continue
			}

			sighting, ok := s.fromSignal(conn, sig, prefix, time.Now())
			if !ok {
				continue
			}

			select {
			case out <- sighting:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *classicScanner) fromSignal(conn *dbus.Conn, sig *dbus.Signal, prefix string, ts time.Time) (models.Sighting, bool) {
	switch sig.Name {
	case interfacesAddedSignal:
		if len(sig.Body) < 2 {
			return models.Sighting{}, false
		}

		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok || !strings.HasPrefix(string(path), prefix) {
			return models.Sighting{}, false
		}

		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return models.Sighting{}, false
		}

		props, ok := ifaces[deviceIface]
		if !ok {
			return models.Sighting{}, false
		}

		return deviceSighting(props, ts)

	case propertiesChangedSignal:
		if len(sig.Body) < 2 {
			return models.Sighting{}, false
		}

		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok || !isResighting(changed) {
			return models.Sighting{}, false
		}

		var props map[string]dbus.Variant

		err := conn.Object(bluezService, sig.Path).Call(propertiesIface+".GetAll", 0, deviceIface).Store(&props)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", string(sig.Path)).Msg("Failed to read device properties")
			return models.Sighting{}, false
		}

		return deviceSighting(props, ts)
	}

	return models.Sighting{}, false
}

// isResighting reports whether a property change means the radio heard
// the device again, rather than e.g. a trust or pairing change.
func isResighting(changed map[string]dbus.Variant) bool {
	for _, key := range []string{"RSSI", "Name", "Class"} {
		if _, ok := changed[key]; ok {
			return true
		}
	}

	return false
}

// deviceSighting converts org.bluez.Device1 properties into a Classic
// sighting. Devices without a Class of Device are LE-only and skipped.
func deviceSighting(props map[string]dbus.Variant, ts time.Time) (models.Sighting, bool) {
	addr, _ := variantValue[string](props, "Address")
	if addr == "" {
		return models.Sighting{}, false
	}

	class, ok := variantValue[uint32](props, "Class")
	if !ok {
		return models.Sighting{}, false
	}

	s := models.Sighting{
		Transport:   models.TransportClassic,
		Address:     addr,
		Timestamp:   ts,
		DeviceClass: models.Ptr(class),
	}

	if name, ok := variantValue[string](props, "Name"); ok {
		s.Name = name
	} else if alias, ok := variantValue[string](props, "Alias"); ok && !isAddressAlias(alias, addr) {
		s.Name = alias
	}

	if rssi, ok := variantValue[int16](props, "RSSI"); ok {
		s.RSSI = models.Ptr(int(rssi))
	}

	return s, true
}

// isAddressAlias reports whether alias is the placeholder BlueZ derives
// from the address of an unnamed device.
func isAddressAlias(alias, addr string) bool {
	return strings.EqualFold(alias, strings.ReplaceAll(addr, ":", "-"))
}

func variantValue[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T

	v, ok := props[key]
	if !ok {
		return zero, false
	}

	out, ok := v.Value().(T)
	if !ok {
		return zero, false
	}

	return out, true
}

func (s *classicScanner) stopDiscovery(adapter dbus.BusObject) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := adapter.CallWithContext(ctx, adapterIface+".StopDiscovery", 0).Err; err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop Classic discovery")
	}
}

func (*classicScanner) closeConn(conn *dbus.Conn, signals chan *dbus.Signal) {
	conn.RemoveSignal(signals)
	_ = conn.Close()
}
