package kv_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cinedex/cinedex-backend/pkg/kv"

	// Import backends to register them
	_ "github.com/cinedex/cinedex-backend/pkg/kv/memory"
	_ "github.com/cinedex/cinedex-backend/pkg/kv/redis"
)

func ExampleNewStoreFromConfig_memory() {
	store, err := kv.NewStoreFromConfig(kv.Config{
		Backend:         kv.BackendMemory,
		JanitorInterval: 30 * time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "import:42", []byte("done"), time.Minute); err != nil {
		log.Fatal(err)
	}

	value, err := store.Get(ctx, "import:42")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(value))
	// Output: done
}

func ExampleNewStoreFromConfig_list() {
	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"run-1", "run-2", "run-3"} {
		store.LPush(ctx, "recent", []byte(id))
	}
	store.LTrim(ctx, "recent", 0, 1)

	recent, err := store.LRange(ctx, "recent", 0, -1)
	if err != nil {
		log.Fatal(err)
	}
	for _, id := range recent {
		fmt.Println(string(id))
	}
	// Output:
	// run-3
	// run-2
}
