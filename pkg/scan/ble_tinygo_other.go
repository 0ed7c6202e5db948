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

//go:build !linux

package scan

import (
	"fmt"

	"tinygo.org/x/bluetooth"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

// openTinyGoAdapter returns the system adapter. CoreBluetooth and WinRT
// expose a single radio, so only the empty name is accepted.
func openTinyGoAdapter(name string) (*bluetooth.Adapter, error) {
	if name != "" {
		return nil, fmt.Errorf("%w: adapter selection is only supported on Linux", ErrInvalidAdapter)
	}

	return bluetooth.DefaultAdapter, nil
}

// tinyGoAddressType is unknown off Linux: macOS hides the hardware address
// behind a per-host UUID.
func tinyGoAddressType(bluetooth.Address) *models.AddressType {
	return nil
}

// openDeviceDetails has nothing to offer off Linux: CoreBluetooth and WinRT
// hand tinygo pre-parsed fields without the service UUID list, TX power or
// appearance.
func openDeviceDetails(string, logger.Logger) deviceDetails {
	return noDeviceDetails{}
}
