// Package board is the headless view controller for a poster board: pin
// placement, submission cooldown, the open pin's thread and fly-to-pin,
// kept in sync with the realtime feed.
package board

import (
	"context"
	"errors"
	"io"
	"time"

	"posterboard/internal/geometry"
	"posterboard/internal/models"
)

// User-facing messages raised through the Alerter.
const (
	MsgPostFailed   = "Failed to post. Please try again."
	MsgDeleteFailed = "Failed to delete"
	MsgDeleteDenied = "Delete was blocked. A policy change is required to delete pins."
	MsgReplyFailed  = "Failed to reply"
	MsgUploadFailed = "Upload failed. Please try again."
)

var (
	// ErrDeleteDenied means the store accepted the delete but removed nothing.
	ErrDeleteDenied  = errors.New("board: delete denied by policy")
	ErrCooldown      = errors.New("board: posting is cooling down")
	ErrSubmitting    = errors.New("board: a submission is already in flight")
	ErrEmptyBody     = errors.New("board: comment is empty")
	ErrBodyTooLong   = errors.New("board: comment is too long")
	ErrPinNotFound   = errors.New("board: pin not found")
	ErrNotDetailOpen = errors.New("board: no pin is open")

	// ErrInvalidState is returned when an action does not apply to the
	// controller's current state.
	ErrInvalidState = errors.New("board: action not available in this state")

	// ErrFeedClosed is returned by Run when the board feed drops. The feed
	// does not reconnect.
	ErrFeedClosed = errors.New("board: realtime feed closed")
)

// Event types delivered by a Feed.
const (
	EventPinCreated   = "pin_created"
	EventPinDeleted   = "pin_deleted"
	EventReplyCreated = "reply_created"
	// EventDropped means the server discarded events for this subscriber;
	// the mirror must be reloaded.
	EventDropped = "messages_dropped"
)

// Event is one change pushed by the backend.
type Event struct {
	Type  string
	Pin   *models.Pin
	PinID string
	Reply *models.Reply
}

// Subscription is a live feed. Close must be called on every exit path and
// may be called more than once. Events is closed when the connection ends.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

type CreatePinInput struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	AuthorName string  `json:"author_name"`
	Body       string  `json:"body"`
}

type CreateReplyInput struct {
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

// Store is the record store behind the board.
type Store interface {
	ListPins(ctx context.Context) ([]models.Pin, error)
	CreatePin(ctx context.Context, in CreatePinInput) (*models.Pin, error)
	// DeletePin returns ErrDeleteDenied when nothing was removed.
	DeletePin(ctx context.Context, id string) error
	ListReplies(ctx context.Context, pinID string) ([]models.Reply, error)
	CreateReply(ctx context.Context, pinID string, in CreateReplyInput) error
}

// PosterStore uploads the poster image.
type PosterStore interface {
	UploadPoster(ctx context.Context, filename string, r io.Reader) (*models.PosterInfo, error)
}

// Feed opens realtime subscriptions.
type Feed interface {
	SubscribeBoard(ctx context.Context) (Subscription, error)
	SubscribeReplies(ctx context.Context, pinID string) (Subscription, error)
}

// Viewport is the pan/zoom surface the poster is drawn on.
type Viewport interface {
	// PosterBox is the poster's rendered box in pointer coordinates. It
	// already includes the current zoom.
	PosterBox() geometry.Rect
	// ContentSize is the poster's measured size at the current scale.
	ContentSize() geometry.Size
	Transform() geometry.Transform
	// Size is the visible viewport.
	Size() geometry.Size
	AnimateTo(t geometry.Transform, d time.Duration)
}

// Alerter shows messages to the user.
type Alerter interface {
	Alert(msg string)
	Warn(msg string)
}

// Clock is the controller's time source.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }
