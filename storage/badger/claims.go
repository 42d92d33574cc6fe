// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"sync"
	"time"

	"github.com/poiesic/papertrail/core"
)

// DefaultClaimTTL is how long a fetched pending chunk stays reserved for the
// caller that fetched it.
const DefaultClaimTTL = 5 * time.Minute

type claimKey struct {
	doc   core.ID
	index int
}

// claimTable leases pending chunks to fetchers within this process. Badger
// has no row locks, so the lease lives next to the database handle; an
// expired lease lets another worker pick the chunk up again.
type claimTable struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	leases map[claimKey]time.Time
}

func newClaimTable(ttl time.Duration) *claimTable {
	return &claimTable{
		ttl:    ttl,
		now:    time.Now,
		leases: make(map[claimKey]time.Time),
	}
}

// tryClaim leases k unless someone else holds a live lease on it.
func (c *claimTable) tryClaim(k claimKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if until, ok := c.leases[k]; ok && now.Before(until) {
		return false
	}
	c.leases[k] = now.Add(c.ttl)
	return true
}

func (c *claimTable) release(keys ...claimKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.leases, k)
	}
}

// sweep drops expired leases.
func (c *claimTable) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, until := range c.leases {
		if !now.Before(until) {
			delete(c.leases, k)
		}
	}
}
