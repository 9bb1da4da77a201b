package queue

import (
	"sync"
	"testing"
)

// BenchmarkPushPop measures single-producer single-consumer handoff
// throughput on a bounded queue.
func BenchmarkPushPop(b *testing.B) {
	q, err := New[int](1024)
	if err != nil {
		b.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, err := q.Pop(); err != nil {
				return
			}
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := q.Push(i); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	q.Shutdown()
	wg.Wait()
}

// BenchmarkPushPopContended measures throughput with multiple producers
// and consumers sharing one queue.
func BenchmarkPushPopContended(b *testing.B) {
	const consumers = 4

	q, err := New[int](256)
	if err != nil {
		b.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := q.Pop(); err != nil {
					return
				}
			}
		}()
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := q.Push(1); err != nil {
				return
			}
		}
	})
	b.StopTimer()

	q.Shutdown()
	wg.Wait()
}
