// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cinedex/cinedex-backend/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

type storeTest struct {
	name string
	test func(t *testing.T, store kv.Store)
}

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	t.Run("StringOperations", func(t *testing.T) {
		runAll(t, factory, []storeTest{
			{"SetGet", testSetGet},
			{"GetNonExistent", testGetNonExistent},
			{"Overwrite", testOverwrite},
		})
	})
	t.Run("TTLOperations", func(t *testing.T) {
		runAll(t, factory, []storeTest{
			{"SetWithTTL", testSetWithTTL},
			{"Expire", testExpire},
		})
	})
	t.Run("ListOperations", func(t *testing.T) {
		runAll(t, factory, []storeTest{
			{"LPushRange", testLPushRange},
			{"LTrim", testLTrim},
			{"LRangeNonExistent", testLRangeNonExistent},
		})
	})
	t.Run("HealthCheck", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		if err := store.Ping(context.Background()); err != nil {
			t.Fatalf("Ping failed for healthy store: %v", err)
		}
	})
}

func runAll(t *testing.T, factory StoreFactory, tests []storeTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:string"
	value := []byte("hello world")

	if err := store.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !reflect.DeepEqual(result, value) {
		t.Fatalf("Expected %v, got %v", value, result)
	}
}

func testGetNonExistent(t *testing.T, store kv.Store) {
	_, err := store.Get(context.Background(), "test:nonexistent")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func testOverwrite(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:overwrite"

	store.Set(ctx, key, []byte("first"), 100*time.Millisecond)
	if err := store.Set(ctx, key, []byte("second")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(result) != "second" {
		t.Fatalf("Expected %q, got %q", "second", result)
	}

	// Overwriting without a TTL clears the previous one
	time.Sleep(150 * time.Millisecond)

	if _, err := store.Get(ctx, key); err != nil {
		t.Fatalf("Expected overwritten key to outlive the old TTL, got %v", err)
	}
}

func testSetWithTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:ttl"

	if err := store.Set(ctx, key, []byte("expires"), 100*time.Millisecond); err != nil {
		t.Fatalf("Set with TTL failed: %v", err)
	}

	if _, err := store.Get(ctx, key); err != nil {
		t.Fatalf("Expected key to exist initially, got %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	_, err := store.Get(ctx, key)
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected key to be expired, got %v", err)
	}
}

func testExpire(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:expire"

	store.Set(ctx, key, []byte("test"))

	expired, err := store.Expire(ctx, key, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if !expired {
		t.Fatalf("Expected Expire to return true for existing key")
	}

	ok, err := store.Expire(ctx, "test:expire-missing", time.Second)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if ok {
		t.Fatalf("Expected Expire to return false for missing key")
	}

	time.Sleep(150 * time.Millisecond)

	_, err = store.Get(ctx, key)
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected key to be expired, got %v", err)
	}
}

func testLPushRange(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:list-range"

	n, err := store.LPush(ctx, key, []byte("value1"), []byte("value2"), []byte("value3"))
	if err != nil {
		t.Fatalf("LPush failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected length 3, got %d", n)
	}

	values, err := store.LRange(ctx, key, 0, 1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}

	expected := [][]byte{[]byte("value3"), []byte("value2")}
	if !reflect.DeepEqual(values, expected) {
		t.Fatalf("Expected %q, got %q", expected, values)
	}

	values, err = store.LRange(ctx, key, 0, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(values))
	}
}

func testLTrim(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:list-trim"

	for _, v := range []string{"a", "b", "c", "d"} {
		store.LPush(ctx, key, []byte(v))
	}

	if err := store.LTrim(ctx, key, 0, 1); err != nil {
		t.Fatalf("LTrim failed: %v", err)
	}

	values, err := store.LRange(ctx, key, 0, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	expected := [][]byte{[]byte("d"), []byte("c")}
	if !reflect.DeepEqual(values, expected) {
		t.Fatalf("Expected %q, got %q", expected, values)
	}
}

func testLRangeNonExistent(t *testing.T, store kv.Store) {
	_, err := store.LRange(context.Background(), "test:list-missing", 0, -1)
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
