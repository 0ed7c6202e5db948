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

// Package sightings folds raw scanner observations into one DeviceRecord
// per hardware address.
package sightings

import (
	"encoding/hex"
	"errors"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
)

var (
	ErrMissingAddress = errors.New("sighting has no device address")
	ErrSealed         = errors.New("aggregator is sealed")
)

const (
	defaultShardCount       = 16
	expectedDevicesPerShard = 16
)

// shard holds a partition of the address space and its own lock.
type shard struct {
	mu      sync.Mutex
	records map[string]*models.DeviceRecord
}

// Aggregator maps device addresses to their accumulated DeviceRecord.
// Record is safe for concurrent use; sightings for the same address are
// serialized by the owning shard's lock.
type Aggregator struct {
	shards     []*shard
	shardCount int
	sealed     atomic.Bool
	now        func() time.Time
	logger     logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used for sightings without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates an empty aggregator.
func New(log logger.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		shards:     make([]*shard, defaultShardCount),
		shardCount: defaultShardCount,
		now:        time.Now,
		logger:     log,
	}

	for i := range a.shards {
		a.shards[i] = &shard{
			records: make(map[string]*models.DeviceRecord, expectedDevicesPerShard),
		}
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// getShardIndex returns the shard for an address using an FNV hash.
func (a *Aggregator) getShardIndex(addr string) int {
	h := fnv.New32a()

	_, err := h.Write([]byte(addr))
	if err != nil {
		return 0
	}

	return int(h.Sum32() % uint32(a.shardCount))
}

// Record merges one sighting and returns a copy of the resulting record.
func (a *Aggregator) Record(s *models.Sighting) (models.DeviceRecord, error) {
	if a.sealed.Load() {
		return models.DeviceRecord{}, ErrSealed
	}

	addr := models.NormalizeAddress(s.Address)
	if addr == "" {
		return models.DeviceRecord{}, ErrMissingAddress
	}

	ts := s.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}

	sh := a.shards[a.getShardIndex(addr)]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if a.sealed.Load() {
		return models.DeviceRecord{}, ErrSealed
	}

	rec, ok := sh.records[addr]
	if !ok {
		rec = &models.DeviceRecord{
			Address:          addr,
			Transport:        s.Transport,
			ServiceUUIDs:     make(map[string]struct{}),
			ServiceData:      make(map[string]string),
			ManufacturerData: make(map[string]string),
			FirstSeen:        ts,
			LastSeen:         ts,
		}
		sh.records[addr] = rec

		a.logger.Debug().
			Str("address", addr).
			Str("transport", string(s.Transport)).
			Msg("New device")
	} else if s.Transport != rec.Transport {
		a.logger.Debug().
			Str("address", addr).
			Str("record_transport", string(rec.Transport)).
			Str("sighting_transport", string(s.Transport)).
			Msg("Cross-transport sighting, keeping original transport")
	}

	if ts.After(rec.LastSeen) {
		rec.LastSeen = ts
	}

	rec.Sightings++

	mergeCommon(rec, s)

	switch rec.Transport {
	case models.TransportBLE:
		mergeBLE(rec, s)
	case models.TransportClassic:
		mergeClassic(rec, s)
	}

	return rec.Clone(), nil
}

func mergeCommon(rec *models.DeviceRecord, s *models.Sighting) {
	if name := strings.TrimSpace(s.Name); name != "" {
		rec.Name = models.Ptr(name)
	}

	if s.RSSI != nil {
		rec.RSSI = models.Ptr(*s.RSSI)
	}

	for _, u := range s.ServiceUUIDs {
		u = strings.ToLower(strings.TrimSpace(u))
		if u == "" {
			continue
		}

		rec.ServiceUUIDs[u] = struct{}{}
	}

	mergeHex(rec.ServiceData, s.ServiceData, strings.ToLower)
	mergeHex(rec.ManufacturerData, s.ManufacturerData, nil)
}

func mergeBLE(rec *models.DeviceRecord, s *models.Sighting) {
	if s.TxPower != nil {
		rec.TxPower = models.Ptr(*s.TxPower)
	}

	if s.Appearance != nil {
		rec.Appearance = models.Ptr(*s.Appearance)
	}

	if s.Connectable != nil {
		rec.Connectable = models.Ptr(*s.Connectable)
	}

	if s.AddressType != nil && *s.AddressType != "" {
		rec.AddressType = models.Ptr(*s.AddressType)
	}
}

func mergeClassic(rec *models.DeviceRecord, s *models.Sighting) {
	if s.DeviceClass != nil {
		rec.DeviceClass = models.Ptr(*s.DeviceClass)
	}
}

// mergeHex copies src into dst as lowercase hex, overwriting existing keys.
// Empty keys and empty payloads are skipped.
func mergeHex(dst map[string]string, src map[string][]byte, normKey func(string) string) {
	for k, v := range src {
		k = strings.TrimSpace(k)
		if k == "" || len(v) == 0 {
			continue
		}

		if normKey != nil {
			k = normKey(k)
		}

		dst[k] = hex.EncodeToString(v)
	}
}

// Get returns a copy of the record for addr.
func (a *Aggregator) Get(addr string) (models.DeviceRecord, bool) {
	addr = models.NormalizeAddress(addr)
	sh := a.shards[a.getShardIndex(addr)]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if a.sealed.Load() {
		return models.DeviceRecord{}, ErrSealed
	}

	rec, ok := sh.records[addr]
	if !ok {
		return models.DeviceRecord{}, false
	}

	return rec.Clone(), true
}

// Len returns the number of distinct addresses seen.
func (a *Aggregator) Len() int {
	total := 0

	for _, sh := range a.shards {
		sh.mu.Lock()
		total += len(sh.records)
		sh.mu.Unlock()
	}

	return total
}

// Counts returns the number of distinct devices per transport.
func (a *Aggregator) Counts() map[models.Transport]int {
	counts := make(map[models.Transport]int, 2)

	for _, sh := range a.shards {
		sh.mu.Lock()

		for _, rec := range sh.records {
			counts[rec.Transport]++
		}

		sh.mu.Unlock()
	}

	return counts
}

// Seal stops the aggregator from accepting further sightings. It returns
// once every in-flight Record has released its shard, so snapshots taken
// after Seal are final.
func (a *Aggregator) Seal() {
	if !a.sealed.CompareAndSwap(false, true) {
		return
	}

	for _, sh := range a.shards {
		sh.mu.Lock()
		sh.mu.Unlock() //nolint:staticcheck // waits out in-flight writers
	}

	a.logger.Debug().Int("devices", a.Len()).Msg("Aggregator sealed")
}

// Snapshot returns deep copies of every record ordered by first sighting,
// then by address.
func (a *Aggregator) Snapshot() []models.DeviceRecord {
	out := make([]models.DeviceRecord, 0, a.Len())

	for _, sh := range a.shards {
		sh.mu.Lock()

		for _, rec := range sh.records {
			out = append(out, rec.Clone())
		}

		sh.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}

		return out[i].Address < out[j].Address
	})

	return out
}
