// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// This file implements the token revocation blacklist, the fast tier of
// the two-tier revocation check. Revoked jtis are stored with a TTL equal
// to the token's remaining lifetime; after natural expiry the standard
// exp check takes over, so entries never need to outlive their token.
//
// The BadgerDB backend survives restarts; the memory backend is for tests
// and single-node deployments that accept losing the cache on restart
// (the durable session store still rejects revoked sessions).
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hoodstech/hoods-be-main/internal/logging"
)

// Blacklist metrics
var (
	// BlacklistOperationsTotal counts blacklist operations by outcome.
	BlacklistOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_blacklist_operations_total",
			Help: "Total number of token blacklist operations",
		},
		[]string{"operation", "outcome"}, // operation: add, check, cleanup; outcome: success, failure, hit
	)

	// BlacklistSize tracks the current number of blacklisted jtis.
	BlacklistSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_blacklist_size",
			Help: "Current number of blacklisted token IDs",
		},
	)

	// BlacklistCleanedUpTotal counts entries removed during cleanup.
	BlacklistCleanedUpTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_blacklist_cleaned_up_total",
			Help: "Total number of expired blacklist entries cleaned up",
		},
	)
)

// ErrBlacklistClosed indicates the blacklist has been closed.
var ErrBlacklistClosed = errors.New("token blacklist is closed")

// blacklistEntry is a stored revocation record.
type blacklistEntry struct {
	JTI       string    `json:"jti"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Blacklist is the revocation cache consulted on every authenticated
// request before the durable session store.
type Blacklist interface {
	// Add records a revoked jti for ttl. Adding an already present jti
	// refreshes its expiry.
	Add(ctx context.Context, jti string, ttl time.Duration) error

	// Contains reports whether a jti is currently blacklisted.
	Contains(ctx context.Context, jti string) (bool, error)

	// CleanupExpired removes entries whose tokens have since expired.
	// Returns the number removed.
	CleanupExpired(ctx context.Context) (int, error)

	// Size returns the approximate number of entries.
	Size(ctx context.Context) (int, error)

	// Close releases resources. The blacklist rejects operations after.
	Close() error
}

// MemoryBlacklist is an in-memory Blacklist.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]blacklistEntry
	closed  bool
}

// NewMemoryBlacklist creates an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]blacklistEntry),
	}
}

// Add records a revoked jti.
func (b *MemoryBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // token already expired, exp check covers it
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		BlacklistOperationsTotal.WithLabelValues("add", "failure").Inc()
		return ErrBlacklistClosed
	}

	now := time.Now()
	b.entries[jti] = blacklistEntry{
		JTI:       jti,
		RevokedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	BlacklistOperationsTotal.WithLabelValues("add", "success").Inc()
	BlacklistSize.Set(float64(len(b.entries)))
	return nil
}

// Contains reports whether a jti is blacklisted and unexpired.
func (b *MemoryBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, ErrBlacklistClosed
	}

	entry, ok := b.entries[jti]
	if !ok || time.Now().After(entry.ExpiresAt) {
		BlacklistOperationsTotal.WithLabelValues("check", "success").Inc()
		return false, nil
	}

	BlacklistOperationsTotal.WithLabelValues("check", "hit").Inc()
	return true, nil
}

// CleanupExpired removes expired entries.
func (b *MemoryBlacklist) CleanupExpired(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBlacklistClosed
	}

	count := 0
	now := time.Now()
	for jti, entry := range b.entries {
		if now.After(entry.ExpiresAt) {
			delete(b.entries, jti)
			count++
		}
	}

	BlacklistOperationsTotal.WithLabelValues("cleanup", "success").Inc()
	BlacklistCleanedUpTotal.Add(float64(count))
	BlacklistSize.Set(float64(len(b.entries)))
	return count, nil
}

// Size returns the number of entries.
func (b *MemoryBlacklist) Size(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrBlacklistClosed
	}
	return len(b.entries), nil
}

// Close closes the blacklist.
func (b *MemoryBlacklist) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.entries = nil
	return nil
}

// BadgerBlacklist is a BadgerDB-backed Blacklist that survives restarts.
type BadgerBlacklist struct {
	db     *badger.DB
	prefix []byte
	closed bool
	mu     sync.RWMutex
}

// NewBadgerBlacklist creates a blacklist on a shared BadgerDB instance.
// prefix defaults to "blacklist:".
func NewBadgerBlacklist(db *badger.DB, prefix string) *BadgerBlacklist {
	if prefix == "" {
		prefix = "blacklist:"
	}
	return &BadgerBlacklist{
		db:     db,
		prefix: []byte(prefix),
	}
}

func (b *BadgerBlacklist) makeKey(jti string) []byte {
	return append(b.prefix, []byte(jti)...)
}

// Add records a revoked jti with a Badger-native TTL.
func (b *BadgerBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		BlacklistOperationsTotal.WithLabelValues("add", "failure").Inc()
		return ErrBlacklistClosed
	}
	b.mu.RUnlock()

	now := time.Now()
	entry := blacklistEntry{
		JTI:       jti,
		RevokedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		BlacklistOperationsTotal.WithLabelValues("add", "failure").Inc()
		return err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(b.makeKey(jti), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		BlacklistOperationsTotal.WithLabelValues("add", "failure").Inc()
		return err
	}

	BlacklistOperationsTotal.WithLabelValues("add", "success").Inc()
	return nil
}

// Contains reports whether a jti is blacklisted.
func (b *BadgerBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return false, ErrBlacklistClosed
	}
	b.mu.RUnlock()

	var revoked bool
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.makeKey(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var entry blacklistEntry
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return err
			}
			revoked = time.Now().Before(entry.ExpiresAt)
			return nil
		})
	})
	if err != nil {
		BlacklistOperationsTotal.WithLabelValues("check", "failure").Inc()
		return false, err
	}

	if revoked {
		BlacklistOperationsTotal.WithLabelValues("check", "hit").Inc()
	} else {
		BlacklistOperationsTotal.WithLabelValues("check", "success").Inc()
	}
	return revoked, nil
}

// CleanupExpired scans for entries Badger's TTL has not yet compacted away.
func (b *BadgerBlacklist) CleanupExpired(ctx context.Context) (int, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrBlacklistClosed
	}
	b.mu.RUnlock()

	count := 0
	now := time.Now()

	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var keysToDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var entry blacklistEntry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				continue
			}
			if now.After(entry.ExpiresAt) {
				key := make([]byte, len(item.Key()))
				copy(key, item.Key())
				keysToDelete = append(keysToDelete, key)
			}
		}

		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		BlacklistOperationsTotal.WithLabelValues("cleanup", "failure").Inc()
		return count, err
	}

	BlacklistOperationsTotal.WithLabelValues("cleanup", "success").Inc()
	BlacklistCleanedUpTotal.Add(float64(count))
	return count, nil
}

// Size returns the approximate number of entries.
func (b *BadgerBlacklist) Size(ctx context.Context) (int, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrBlacklistClosed
	}
	b.mu.RUnlock()

	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})

	BlacklistSize.Set(float64(count))
	return count, err
}

// Close marks the blacklist closed. The shared BadgerDB instance stays
// open for other components.
func (b *BadgerBlacklist) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// OpenBlacklist selects a backend from config: a BadgerDB path for
// durable storage, or in-memory when the path is empty. The returned
// *badger.DB is nil for the memory backend; callers own closing it.
func OpenBlacklist(path string) (Blacklist, *badger.DB, error) {
	if path == "" {
		logging.Warn().Msg("token blacklist running in-memory; revocations will not survive restart")
		return NewMemoryBlacklist(), nil, nil
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, err
	}
	return NewBadgerBlacklist(db, ""), db, nil
}
