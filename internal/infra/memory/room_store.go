package memory

import (
	"sync"
	"time"

	"live-quiz-engine/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRegistry. Each
// coordinator gets its own instance; the lock only protects observers such
// as metrics readers, room state itself belongs to the coordinator loop.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*domain.Room),
	}
}

func (s *RoomStore) Create(quizID, creatorConnID string, now time.Time) (*domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced := s.rooms[quizID]
	room := domain.NewRoom(quizID, creatorConnID, now)
	s.rooms[quizID] = room
	return room, replaced
}

func (s *RoomStore) Get(quizID string) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[quizID]
	return room, ok
}

// Delete is a no-op when the room does not exist.
func (s *RoomStore) Delete(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, quizID)
}

// Range calls fn for every room until fn returns false. fn must not modify the store.
func (s *RoomStore) Range(fn func(room *domain.Room) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if !fn(room) {
			return
		}
	}
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
