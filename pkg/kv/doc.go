// Package kv provides a Redis-like key-value store abstraction with in-memory
// and Redis-backed implementations.
//
// The Store interface covers strings with TTL, key management and lists, which
// is what the import ledger needs.
//
// Example usage:
//
//	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Set(ctx, "key", []byte("value"), 10*time.Second)
//
// Backends register themselves on import:
//
//	import _ "github.com/cinedex/cinedex-backend/pkg/kv/memory"
//	import _ "github.com/cinedex/cinedex-backend/pkg/kv/redis"
package kv
