package snapshot

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStore_UpdateReplacesPerEndpoint(t *testing.T) {
	store := NewStore()

	if _, ok := store.Get("jobs"); ok {
		t.Fatal("empty store returned a result")
	}

	store.Update(Result{Endpoint: "jobs", Data: 1, At: time.Now()})
	store.Update(Result{Endpoint: "jobs", Data: 2, At: time.Now()})
	store.Update(Result{Endpoint: "recent-posts", Err: errors.New("down"), At: time.Now()})

	result, ok := store.Get("jobs")
	if !ok {
		t.Fatal("Get() found nothing for jobs")
	}
	if result.Data != 2 {
		t.Errorf("jobs data = %v, want 2", result.Data)
	}

	result, _ = store.Get("recent-posts")
	if result.Err == nil {
		t.Error("recent-posts error not retained")
	}

	if got := len(store.GetAll()); got != 2 {
		t.Errorf("GetAll() length = %d, want 2", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Update(Result{Endpoint: "jobs", Data: n, At: time.Now()})
				store.Get("jobs")
				store.GetAll()
			}
		}(i)
	}
	wg.Wait()

	if _, ok := store.Get("jobs"); !ok {
		t.Error("Get() found nothing after concurrent updates")
	}
}
