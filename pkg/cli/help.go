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

package cli

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	fmt.Fprint(w, `btsniff: passive Bluetooth discovery for BLE advertisements and Classic inquiry.

Usage:
  btsniff --mode {ble|classic|both} --seconds N [options]

Options:
  --mode string         what to scan: ble, classic or both          (env BTSNIFF_MODE)
  --seconds int         scan duration per mode, must be > 0         (env BTSNIFF_SECONDS)
  --adapter string      adapter name, e.g. hci0                     (env BTSNIFF_ADAPTER)
  --json string         write results to this JSON file
  --csv string          write results to this CSV file
  --verbose             print sightings as they arrive
  --ble-backend string  BLE stack: tinygo (default) or hci (Linux)  (env BTSNIFF_BLE_BACKEND)
  --parallel            run BLE and Classic phases at the same time
  --live                show a live device table while scanning
  --debug               enable debug logging
  --version             print version and exit

With neither --json nor --csv, results go to bt_scan_YYYYMMDD-HHMMSS.json.
Variables may also be set in a .env file in the working directory.

Exit status:
  0  scan finished and every output was written
  1  no scan phase could start, or an output could not be written
  2  invalid command line or unsupported mode on this platform

Examples:
  # 20 second BLE scan, default JSON output
  btsniff --mode ble --seconds 20

  # Both transports on a second adapter, JSON and CSV
  btsniff --mode both --seconds 15 --adapter hci1 --json out.json --csv out.csv

  # Raw HCI backend with a live table
  sudo btsniff --mode ble --seconds 60 --ble-backend hci --live
`)
}
