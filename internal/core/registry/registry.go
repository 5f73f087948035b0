// Package registry keeps the authoritative mapping from contract id to the
// two parties allowed into that contract's room.
//
// Entries are spread over independently locked shards so that lookups for
// unrelated contracts never contend. A lookup miss falls through to the
// contract store and fills the shard; concurrent misses for the same id share
// a single store query.
package registry

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/pkg/metrics"
)

const (
	defaultShards = 32
	loadTimeout   = 5 * time.Second
)

// Source loads contracts the registry has not seen yet.
type Source interface {
	FindByID(ctx context.Context, id int64) (*domain.Contract, error)
}

// Entry is the registry's view of a contract.
type Entry struct {
	ContractID   int64
	JobID        int64
	ClientID     int64
	FreelancerID int64
	Amount       int64
	Status       domain.ContractStatus
}

// IsParty reports whether userID may join the contract's room.
func (e Entry) IsParty(userID int64) bool {
	return userID != 0 && (userID == e.ClientID || userID == e.FreelancerID)
}

func entryOf(c *domain.Contract) Entry {
	return Entry{
		ContractID:   c.ID,
		JobID:        c.JobID,
		ClientID:     c.ClientID,
		FreelancerID: c.FreelancerID,
		Amount:       c.Amount,
		Status:       c.Status,
	}
}

type shard struct {
	mu      sync.RWMutex
	entries map[int64]Entry
}

// Registry is safe for concurrent use.
type Registry struct {
	shards []*shard
	source Source
	loads  singleflight.Group
	log    zerolog.Logger
}

// New creates a Registry with numShards shards backed by source. If
// numShards <= 0, defaultShards is used. source may be nil, in which case
// only registered contracts resolve.
func New(source Source, numShards int, log zerolog.Logger) *Registry {
	if numShards <= 0 {
		numShards = defaultShards
	}
	r := &Registry{
		shards: make([]*shard, numShards),
		source: source,
		log:    log,
	}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[int64]Entry)}
	}
	return r
}

// Register records a freshly created contract. The party pair of an existing
// entry is never overwritten.
func (r *Registry) Register(c *domain.Contract) {
	if c == nil || c.ID == 0 {
		return
	}
	s := r.shardFor(c.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[c.ID]; ok {
		if prev.ClientID != c.ClientID || prev.FreelancerID != c.FreelancerID {
			r.log.Error().Int64("contract_id", c.ID).Msg("refusing to change contract parties")
		}
		return
	}
	s.entries[c.ID] = entryOf(c)
}

// Lookup resolves a contract id. It returns domain.ErrContractNotFound when
// neither the registry nor its source knows the contract.
func (r *Registry) Lookup(ctx context.Context, id int64) (Entry, error) {
	if id <= 0 {
		metrics.RegistryLookupsTotal.WithLabelValues("not_found").Inc()
		return Entry{}, domain.ErrContractNotFound
	}

	s := r.shardFor(id)
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		metrics.RegistryLookupsTotal.WithLabelValues("hit").Inc()
		return e, nil
	}

	if r.source == nil {
		metrics.RegistryLookupsTotal.WithLabelValues("not_found").Inc()
		return Entry{}, domain.ErrContractNotFound
	}

	// The load is shared by every waiter, so one caller giving up must not
	// cancel it for the rest.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(loadCtx, loadTimeout)
		defer cancel()
		c, err := r.source.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.Register(c)
		return entryOf(c), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.RegistryLookupsTotal.WithLabelValues("not_found").Inc()
			return Entry{}, domain.ErrContractNotFound
		}
		r.log.Warn().Err(err).Int64("contract_id", id).Msg("contract lookup failed")
		return Entry{}, err
	}

	metrics.RegistryLookupsTotal.WithLabelValues("miss").Inc()
	return v.(Entry), nil
}

// Len returns the number of cached entries.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

func (r *Registry) shardFor(id int64) *shard {
	h := fnv.New32a()
	var b [8]byte
	for i := range b {
		b[i] = byte(uint64(id) >> (8 * i))
	}
	_, _ = h.Write(b[:])
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}
