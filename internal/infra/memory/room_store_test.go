package memory

import (
	"testing"
	"time"

	"live-quiz-engine/internal/domain"
)

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()
	now := time.Now()

	room, replaced := store.Create("quiz-1", "conn-a", now)
	if room == nil || replaced {
		t.Fatalf("expected fresh room, replaced=%v", replaced)
	}
	if got, ok := store.Get("quiz-1"); !ok || got != room {
		t.Fatalf("expected room present")
	}

	store.Delete("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected room removed")
	}
	store.Delete("quiz-1")
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestRoomStoreCreateReplaces(t *testing.T) {
	store := NewRoomStore()
	now := time.Now()

	first, _ := store.Create("quiz-1", "conn-a", now)
	first.Join("u1", "Alice", "", now)

	second, replaced := store.Create("quiz-1", "conn-b", now)
	if !replaced {
		t.Fatalf("expected replacement to be reported")
	}
	if second.CreatorConnID != "conn-b" || len(second.Participants) != 0 {
		t.Fatalf("expected fresh room for new creator, got %+v", second)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one room, got %d", store.Len())
	}
}

func TestRoomStoreRange(t *testing.T) {
	store := NewRoomStore()
	now := time.Now()
	store.Create("quiz-1", "a", now)
	store.Create("quiz-2", "b", now)
	store.Create("quiz-3", "c", now)

	seen := 0
	store.Range(func(_ *domain.Room) bool {
		seen++
		return seen < 2
	})
	if seen != 2 {
		t.Fatalf("expected range to stop after 2, saw %d", seen)
	}
}
