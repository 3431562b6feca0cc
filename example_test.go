package party_test

import (
	"context"
	"fmt"
	"sync"

	party "github.com/joeycumines/go-party"
)

// Example_basicUsage shows the fundamental pattern: create a Party over a
// pool executor, Spawn a participant, and observe its result via the
// onReady callback.
func Example_basicUsage() {
	p, err := party.New(party.NewPoolExecutor(2))
	if err != nil {
		fmt.Println("failed to create party:", err)
		return
	}
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	err = party.Spawn(p, "answer", func(context.Context) party.Poll[int] {
		return party.Ready(42)
	}, func(v int) {
		fmt.Println(v)
		wg.Done()
	})
	if err != nil {
		fmt.Println("spawn failed:", err)
		return
	}
	wg.Wait()

	// Output:
	// 42
}

// Example_spawnWaitable shows a participant's result observed with
// Poller.Wait from outside any Party's run loop.
func Example_spawnWaitable() {
	p, err := party.New(party.NewPoolExecutor(1))
	if err != nil {
		fmt.Println("failed to create party:", err)
		return
	}
	defer p.Close()

	poller, err := party.SpawnWaitable(p, "greeting", func(context.Context) party.Poll[string] {
		return party.Ready("hello")
	})
	if err != nil {
		fmt.Println("spawn failed:", err)
		return
	}

	v, ok, err := poller.Wait(context.Background())
	if err != nil {
		fmt.Println("wait failed:", err)
		return
	}
	fmt.Println(v, ok)

	// Output:
	// hello true
}

// Example_bulkSpawn shows a BulkSpawner committing three participants
// atomically.
func Example_bulkSpawn() {
	p, err := party.New(party.NewPoolExecutor(1))
	if err != nil {
		fmt.Println("failed to create party:", err)
		return
	}
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(3)
	var mu sync.Mutex
	var total int

	b := party.NewBulkSpawner(p)
	for i := 1; i <= 3; i++ {
		i := i
		party.BulkSpawn(b, fmt.Sprintf("add-%d", i), func(context.Context) party.Poll[int] {
			return party.Ready(i)
		}, func(v int) {
			mu.Lock()
			total += v
			mu.Unlock()
			wg.Done()
		})
	}
	if err := b.Close(); err != nil {
		fmt.Println("bulk spawn failed:", err)
		return
	}
	wg.Wait()
	fmt.Println(total)

	// Output:
	// 6
}
