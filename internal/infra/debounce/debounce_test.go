package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/infra/debounce"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) flush(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSaver_CoalescesBursts(t *testing.T) {
	rec := &recorder{}
	s := debounce.New(50*time.Millisecond, rec.flush)

	for i := 0; i < 5; i++ {
		s.Trigger("user-1")
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("expected 1 flush for burst, got %d", got)
	}
}

func TestSaver_SeparateKeys(t *testing.T) {
	rec := &recorder{}
	s := debounce.New(20*time.Millisecond, rec.flush)

	s.Trigger("user-1")
	s.Trigger("user-2")

	time.Sleep(100 * time.Millisecond)

	if got := rec.count(); got != 2 {
		t.Errorf("expected 2 flushes, got %d", got)
	}
}

func TestSaver_Cancel(t *testing.T) {
	rec := &recorder{}
	s := debounce.New(30*time.Millisecond, rec.flush)

	s.Trigger("user-1")
	s.Cancel("user-1")

	time.Sleep(100 * time.Millisecond)

	if got := rec.count(); got != 0 {
		t.Errorf("expected no flush after cancel, got %d", got)
	}
}

func TestSaver_FlushAll(t *testing.T) {
	rec := &recorder{}
	s := debounce.New(10*time.Minute, rec.flush)

	s.Trigger("user-1")
	s.Trigger("user-2")
	s.FlushAll()

	if got := rec.count(); got != 2 {
		t.Errorf("expected 2 synchronous flushes, got %d", got)
	}
}
