package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no live session exists for a quiz.
	ErrRoomNotFound = errors.New("quiz room not found")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrNotCreator is returned when a creator-only request comes from another connection.
	ErrNotCreator = errors.New("connection is not the quiz creator")
	// ErrScoreboardNotFound indicates no scoreboard has been persisted for a quiz.
	ErrScoreboardNotFound = errors.New("scoreboard not found")
	// ErrCoordinatorStopped is returned when events are dispatched after the event loop exited.
	ErrCoordinatorStopped = errors.New("session coordinator stopped")
)
