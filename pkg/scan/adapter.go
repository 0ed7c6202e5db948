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
	"fmt"
	"strconv"
	"strings"
)

// hciDeviceID maps an adapter name such as "hci1" (or a bare "1") to its
// HCI device index. An empty name selects hci0.
func hciDeviceID(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}

	id, err := strconv.Atoi(strings.TrimPrefix(name, "hci"))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q (expected hciN)", ErrInvalidAdapter, name)
	}

	return id, nil
}

func hciName(id int) string {
	return "hci" + strconv.Itoa(id)
}
