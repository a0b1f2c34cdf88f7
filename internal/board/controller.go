package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"posterboard/internal/geometry"
	"posterboard/internal/models"
)

// State is the controller's interaction mode.
type State int

const (
	Idle State = iota
	Placing
	PendingSubmit
	DetailOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Placing:
		return "placing"
	case PendingSubmit:
		return "pending_submit"
	case DetailOpen:
		return "detail_open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Defaults for Options.
const (
	DefaultCooldown     = 10 * time.Second
	DefaultSettleDelay  = 500 * time.Millisecond
	DefaultFlyDuration  = 500 * time.Millisecond
	DefaultFlyRetries   = 5
	DefaultMaxBodyRunes = 300
)

type Options struct {
	Cooldown     time.Duration
	SettleDelay  time.Duration
	FlyDuration  time.Duration
	FlyRetries   int
	MaxBodyRunes int
	Clock        Clock
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.FlyDuration <= 0 {
		o.FlyDuration = DefaultFlyDuration
	}
	if o.FlyRetries <= 0 {
		o.FlyRetries = DefaultFlyRetries
	}
	if o.MaxBodyRunes <= 0 {
		o.MaxBodyRunes = DefaultMaxBodyRunes
	}
	if o.Clock == nil {
		o.Clock = RealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Draft is the composer content kept across a failed submit.
type Draft struct {
	AuthorName string
	Body       string
}

// Marker is a visible pin placed on screen.
type Marker struct {
	PinID string
	// Normalized is the pin's position as fractions of the poster.
	Normalized geometry.Point
	// Screen is the position in viewport coordinates.
	Screen geometry.Point
}

// Controller composes the store, the realtime feed and the viewport. It is
// safe for concurrent use; network calls run without holding the lock.
type Controller struct {
	store    Store
	feed     Feed
	viewport Viewport
	alerts   Alerter
	opts     Options

	mu            sync.Mutex
	state         State
	pending       geometry.Point
	placeGen      int
	draft         Draft
	submitting    bool
	cooldownUntil time.Time
	pins          *PinSet
	thread        *Thread
	detailGen     int
	boardSub      Subscription
	detailSub     Subscription
	showPins      bool
	closed        bool
	wake          chan struct{}
}

func NewController(store Store, feed Feed, viewport Viewport, alerts Alerter, opts Options) *Controller {
	return &Controller{
		store:    store,
		feed:     feed,
		viewport: viewport,
		alerts:   alerts,
		opts:     opts.withDefaults(),
		pins:     NewPinSet(),
		showPins: true,
		wake:     make(chan struct{}, 1),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns the composer content retained after a failed submit.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Pending returns the captured placement while a submit is pending.
func (c *Controller) Pending() (geometry.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.state == PendingSubmit
}

func (c *Controller) CoolingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coolingDownLocked()
}

func (c *Controller) coolingDownLocked() bool {
	return c.opts.Clock.Now().Before(c.cooldownUntil)
}

// Pins returns the loaded pins in insertion order.
func (c *Controller) Pins() []models.Pin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pins.All()
}

// Thread returns the open pin's id and replies.
func (c *Controller) Thread() (string, []models.Reply, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DetailOpen || c.thread == nil {
		return "", nil, false
	}
	return c.thread.PinID, c.thread.All(), true
}

func (c *Controller) cooldownMessage() string {
	secs := int(c.opts.Cooldown.Round(time.Second) / time.Second)
	return fmt.Sprintf("Please wait %d seconds between posts.", secs)
}

// ArmPlacement enters placement mode. While the post cooldown runs it warns
// and stays idle.
func (c *Controller) ArmPlacement() error {
	c.mu.Lock()
	if c.coolingDownLocked() {
		c.mu.Unlock()
		c.alerts.Warn(c.cooldownMessage())
		return ErrCooldown
	}
	switch c.state {
	case Placing:
		c.mu.Unlock()
		return nil
	case Idle:
		c.state = Placing
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrInvalidState
	}
}

// Place captures the pointer as the new pin's location and leaves placement
// mode. geometry.ErrUnavailable means the poster is not laid out yet; the
// controller stays in placement mode so the caller can retry.
func (c *Controller) Place(pointer geometry.Point) (geometry.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Placing {
		return geometry.Point{}, ErrInvalidState
	}

	n, err := geometry.ToNormalized(pointer, c.viewport.PosterBox())
	if err != nil {
		return geometry.Point{}, err
	}
	c.pending = n
	c.placeGen++
	c.state = PendingSubmit
	return n, nil
}

func (c *Controller) validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > c.opts.MaxBodyRunes {
		return "", ErrBodyTooLong
	}
	return body, nil
}

// Submit posts the pending pin. On failure the composer content is kept and
// the controller stays pending so the user can retry.
func (c *Controller) Submit(ctx context.Context, authorName, body string) (*models.Pin, error) {
	c.mu.Lock()
	if c.state != PendingSubmit {
		c.mu.Unlock()
		return nil, ErrInvalidState
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitting
	}
	c.draft = Draft{AuthorName: authorName, Body: body}
	trimmed, err := c.validateBody(body)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.coolingDownLocked() {
		c.mu.Unlock()
		c.alerts.Warn(c.cooldownMessage())
		return nil, ErrCooldown
	}
	c.submitting = true
	at, gen := c.pending, c.placeGen
	c.mu.Unlock()

	pin, err := c.store.CreatePin(ctx, CreatePinInput{
		X:          at.X,
		Y:          at.Y,
		AuthorName: strings.TrimSpace(authorName),
		Body:       trimmed,
	})

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, ErrCooldown) {
			c.alerts.Warn(c.cooldownMessage())
		} else {
			c.alerts.Alert(MsgPostFailed)
		}
		return nil, err
	}
	// The user may have cancelled and moved on while the post was in flight.
	if c.state == PendingSubmit && c.placeGen == gen {
		c.state = Idle
		c.draft = Draft{}
	}
	c.cooldownUntil = c.opts.Clock.Now().Add(c.opts.Cooldown)
	c.pins.Add(*pin)
	c.mu.Unlock()
	return pin, nil
}

// Cancel leaves placement or the pending composer without posting.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Placing || c.state == PendingSubmit {
		c.state = Idle
		c.draft = Draft{}
	}
}

// OpenPin shows the pin's thread and subscribes to its replies. An already
// open pin is closed first.
func (c *Controller) OpenPin(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state == Placing || c.state == PendingSubmit {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if _, ok := c.pins.Get(id); !ok {
		c.mu.Unlock()
		return ErrPinNotFound
	}
	prev := c.detachDetailLocked()
	c.detailGen++
	gen := c.detailGen
	c.thread = NewThread(id)
	c.state = DetailOpen
	c.mu.Unlock()
	closeSub(prev)

	// subscribe before listing so no reply falls between the two; the
	// thread drops the overlap
	sub, err := c.feed.SubscribeReplies(ctx, id)
	if err != nil {
		c.abandonDetail(gen)
		return fmt.Errorf("subscribe replies: %w", err)
	}
	replies, err := c.store.ListReplies(ctx, id)
	if err != nil {
		closeSub(sub)
		c.abandonDetail(gen)
		return fmt.Errorf("list replies: %w", err)
	}

	c.mu.Lock()
	if c.detailGen != gen || c.closed {
		c.mu.Unlock()
		closeSub(sub)
		return ErrNotDetailOpen
	}
	for _, r := range replies {
		c.thread.Add(r)
	}
	c.detailSub = sub
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

func (c *Controller) abandonDetail(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detailGen == gen && c.state == DetailOpen {
		c.state = Idle
		c.thread = nil
	}
}

// detachDetailLocked leaves the detail view and returns its subscription for
// the caller to close outside the lock.
func (c *Controller) detachDetailLocked() Subscription {
	sub := c.detailSub
	c.detailSub = nil
	c.thread = nil
	if c.state == DetailOpen {
		c.state = Idle
	}
	c.detailGen++
	c.notifyLocked()
	return sub
}

// ClosePin leaves the detail view and releases its subscription.
func (c *Controller) ClosePin() {
	c.mu.Lock()
	if c.state != DetailOpen {
		c.mu.Unlock()
		return
	}
	sub := c.detachDetailLocked()
	c.mu.Unlock()
	closeSub(sub)
}

// FlyTo centers the viewport on a pin at FlyToScale and opens it. It waits a
// settle delay first, then retries while the poster has not been measured.
func (c *Controller) FlyTo(ctx context.Context, id string) error {
	var target geometry.Transform
	for attempt := 0; ; attempt++ {
		if err := c.sleep(ctx, c.opts.SettleDelay); err != nil {
			return err
		}

		c.mu.Lock()
		pin, ok := c.pins.Get(id)
		c.mu.Unlock()
		if !ok {
			return ErrPinNotFound
		}

		t, err := geometry.ToScreen(
			geometry.Point{X: pin.X, Y: pin.Y},
			c.viewport.ContentSize(),
			c.viewport.Transform().Scale,
			geometry.FlyToScale,
			c.viewport.Size(),
		)
		if err == nil {
			target = t
			break
		}
		if !errors.Is(err, geometry.ErrUnavailable) || attempt+1 >= c.opts.FlyRetries {
			return err
		}
	}

	c.viewport.AnimateTo(target, c.opts.FlyDuration)
	return c.OpenPin(ctx, id)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.opts.Clock.After(d):
		return nil
	}
}

// DeletePin deletes a pin. A policy denial keeps the pin and shows the
// policy message.
func (c *Controller) DeletePin(ctx context.Context, id string) error {
	if err := c.store.DeletePin(ctx, id); err != nil {
		if errors.Is(err, ErrDeleteDenied) {
			c.alerts.Alert(MsgDeleteDenied)
		} else {
			c.alerts.Alert(MsgDeleteFailed)
		}
		return err
	}

	c.mu.Lock()
	sub := c.removePinLocked(id)
	c.mu.Unlock()
	closeSub(sub)
	return nil
}

// removePinLocked drops the pin and closes its detail view if open.
func (c *Controller) removePinLocked(id string) Subscription {
	c.pins.Remove(id)
	if c.state == DetailOpen && c.thread != nil && c.thread.PinID == id {
		return c.detachDetailLocked()
	}
	return nil
}

// Reply posts to the open pin. The reply shows up through the feed.
func (c *Controller) Reply(ctx context.Context, body, authorName string) error {
	c.mu.Lock()
	if c.state != DetailOpen || c.thread == nil {
		c.mu.Unlock()
		return ErrNotDetailOpen
	}
	trimmed, err := c.validateBody(body)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	pinID := c.thread.PinID
	c.mu.Unlock()

	err = c.store.CreateReply(ctx, pinID, CreateReplyInput{
		AuthorName: strings.TrimSpace(authorName),
		Body:       trimmed,
	})
	if err != nil {
		c.alerts.Alert(MsgReplyFailed)
		return err
	}
	return nil
}

// UploadPoster replaces the poster image.
func (c *Controller) UploadPoster(ctx context.Context, posters PosterStore, filename string, r io.Reader) (*models.PosterInfo, error) {
	info, err := posters.UploadPoster(ctx, filename, r)
	if err != nil {
		c.alerts.Alert(MsgUploadFailed)
		return nil, err
	}
	return info, nil
}

// Load fetches every pin and acquires the board subscription, which is held
// until Close.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrInvalidState
	}
	needSub := c.boardSub == nil
	c.mu.Unlock()

	var sub Subscription
	if needSub {
		s, err := c.feed.SubscribeBoard(ctx)
		if err != nil {
			return fmt.Errorf("subscribe board: %w", err)
		}
		sub = s
	}

	pins, err := c.store.ListPins(ctx)
	if err != nil {
		closeSub(sub)
		return fmt.Errorf("list pins: %w", err)
	}

	c.mu.Lock()
	c.pins.Replace(pins)
	if sub != nil {
		if c.boardSub != nil || c.closed {
			c.mu.Unlock()
			closeSub(sub)
			return nil
		}
		c.boardSub = sub
		c.notifyLocked()
	}
	c.mu.Unlock()
	return nil
}

// Run merges realtime events into the local mirrors until ctx ends, the
// controller is closed or the board feed drops.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		boardSub, detailSub := c.boardSub, c.detailSub
		gen := c.detailGen
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		case ev, ok := <-events(boardSub):
			if !ok {
				return c.boardClosed(boardSub)
			}
			c.applyBoard(ctx, ev)
		case ev, ok := <-events(detailSub):
			if !ok {
				c.detailClosed(gen)
				continue
			}
			c.applyDetail(ctx, gen, ev)
		}
	}
}

func (c *Controller) boardClosed(sub Subscription) error {
	c.mu.Lock()
	closed := c.closed
	if c.boardSub == sub {
		c.boardSub = nil
	}
	c.mu.Unlock()
	closeSub(sub)
	if closed {
		return nil
	}
	return ErrFeedClosed
}

func (c *Controller) detailClosed(gen int) {
	c.mu.Lock()
	var sub Subscription
	if c.detailGen == gen {
		sub = c.detailSub
		c.detailSub = nil
	}
	c.mu.Unlock()
	if sub != nil {
		c.opts.Logger.Warn("reply feed closed")
		closeSub(sub)
	}
}

func (c *Controller) applyBoard(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventPinCreated:
		if ev.Pin == nil {
			return
		}
		c.mu.Lock()
		c.pins.Add(*ev.Pin)
		c.mu.Unlock()
	case EventPinDeleted:
		c.mu.Lock()
		sub := c.removePinLocked(ev.PinID)
		c.mu.Unlock()
		closeSub(sub)
	case EventDropped:
		pins, err := c.store.ListPins(ctx)
		if err != nil {
			c.opts.Logger.Warn("reload after dropped events failed", "error", err)
			return
		}
		c.mu.Lock()
		c.pins.Replace(pins)
		c.mu.Unlock()
	}
}

func (c *Controller) applyDetail(ctx context.Context, gen int, ev Event) {
	switch ev.Type {
	case EventReplyCreated:
		if ev.Reply == nil {
			return
		}
		c.mu.Lock()
		if c.detailGen == gen && c.thread != nil {
			c.thread.Add(*ev.Reply)
		}
		c.mu.Unlock()
	case EventDropped:
		c.mu.Lock()
		if c.detailGen != gen || c.thread == nil {
			c.mu.Unlock()
			return
		}
		pinID := c.thread.PinID
		c.mu.Unlock()

		replies, err := c.store.ListReplies(ctx, pinID)
		if err != nil {
			c.opts.Logger.Warn("reload replies after dropped events failed", "pin_id", pinID, "error", err)
			return
		}
		c.mu.Lock()
		if c.detailGen == gen && c.thread != nil {
			for _, r := range replies {
				c.thread.Add(r)
			}
		}
		c.mu.Unlock()
	}
}

// Close releases both subscriptions. It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	boardSub := c.boardSub
	c.boardSub = nil
	detailSub := c.detachDetailLocked()
	c.mu.Unlock()

	return errors.Join(closeErr(boardSub), closeErr(detailSub))
}

// TogglePins shows or hides the markers and returns the new visibility.
func (c *Controller) TogglePins() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showPins = !c.showPins
	return c.showPins
}

// Markers places every visible pin through the current transform.
func (c *Controller) Markers() []Marker {
	c.mu.Lock()
	if !c.showPins {
		c.mu.Unlock()
		return nil
	}
	pins := c.pins.All()
	c.mu.Unlock()

	t := c.viewport.Transform()
	if !(t.Scale > 0) {
		return nil
	}
	unscaled := geometry.Unscale(c.viewport.ContentSize(), t.Scale)
	out := make([]Marker, 0, len(pins))
	for _, p := range pins {
		n := geometry.Point{X: p.X, Y: p.Y}
		out = append(out, Marker{PinID: p.ID, Normalized: n, Screen: t.Apply(n, unscaled)})
	}
	return out
}

func (c *Controller) notifyLocked() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func events(sub Subscription) <-chan Event {
	if sub == nil {
		return nil
	}
	return sub.Events()
}

func closeSub(sub Subscription) {
	_ = closeErr(sub)
}

func closeErr(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Close()
}
