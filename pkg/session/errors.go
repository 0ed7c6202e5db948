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

package session

import "errors"

var (
	ErrInvalidMode      = errors.New("mode must be one of ble, classic, both")
	ErrInvalidDuration  = errors.New("scan duration must be greater than zero")
	ErrNilFactory       = errors.New("scanner factory is required")
	ErrNoPhaseSucceeded = errors.New("no scan phase succeeded")
	ErrAlreadyRun       = errors.New("session has already run")
)
