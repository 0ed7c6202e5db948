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

import "errors"

var (
	errMissingMode     = errors.New("--mode is required (ble, classic or both)")
	errMissingSeconds  = errors.New("--seconds is required")
	errInvalidSeconds  = errors.New("--seconds must be a positive integer")
	errDuplicateOutput = errors.New("--json and --csv must name different files")
	errUnexpectedArgs  = errors.New("unexpected positional arguments")
)
