package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTimed(t *testing.T) {
	c := NewTimed[[]byte](5 * time.Minute)

	tstart := time.Now()

	c.set("key", []byte("value"), tstart)

	_, ok := c.get("key", tstart.Add(time.Minute))
	if !ok {
		t.Errorf("failed to get key that should not be expired")
	}

	_, ok = c.get("key", tstart.Add(10*time.Minute))
	if ok {
		t.Errorf("succeeded in getting expired key")
	}

	_, ok = c.get("key", tstart.Add(time.Minute))
	if ok {
		t.Errorf("succeeded in getting key that was previously evicted")
	}
}

func TestTimedDelete(t *testing.T) {
	c := NewTimed[string](time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Delete("missing")

	if _, ok := c.Get("a"); ok {
		t.Errorf("deleted key is still present")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Errorf("got %q, %v; want \"2\", true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestTimedSweep(t *testing.T) {
	c := NewTimed[int](time.Minute)
	tstart := time.Now()
	c.set("old", 1, tstart.Add(-2*time.Minute))
	c.set("new", 2, tstart)

	if n := c.sweep(tstart); n != 1 {
		t.Errorf("sweep removed %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestTimedConcurrent(t *testing.T) {
	c := NewTimed[int](time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, i)
			c.Get(key)
			if i%7 == 0 {
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 5 {
		t.Errorf("Len() = %d, want at most 5", c.Len())
	}
}
