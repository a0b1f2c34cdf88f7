package board

import (
	"sort"

	"posterboard/internal/models"
)

// PinSet is the local mirror of the board's pins, keyed by id so a pin that
// arrives both from the submit response and the feed is kept once.
type PinSet struct {
	order []string
	pins  map[string]models.Pin
}

func NewPinSet() *PinSet {
	return &PinSet{pins: make(map[string]models.Pin)}
}

// Add inserts p and reports whether it was new.
func (s *PinSet) Add(p models.Pin) bool {
	if _, ok := s.pins[p.ID]; ok {
		return false
	}
	s.pins[p.ID] = p
	s.order = append(s.order, p.ID)
	return true
}

// Remove drops the pin with id and reports whether it was present.
func (s *PinSet) Remove(id string) bool {
	if _, ok := s.pins[id]; !ok {
		return false
	}
	delete(s.pins, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Replace resets the set to pins, dropping duplicates.
func (s *PinSet) Replace(pins []models.Pin) {
	s.order = s.order[:0]
	s.pins = make(map[string]models.Pin, len(pins))
	for _, p := range pins {
		s.Add(p)
	}
}

func (s *PinSet) Len() int { return len(s.order) }

func (s *PinSet) Get(id string) (models.Pin, bool) {
	p, ok := s.pins[id]
	return p, ok
}

// All returns the pins in insertion order.
func (s *PinSet) All() []models.Pin {
	out := make([]models.Pin, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.pins[id])
	}
	return out
}

// Newest returns the pins by creation time, newest first.
func (s *PinSet) Newest() []models.Pin {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Thread holds the replies of one pin, oldest first, without duplicates.
type Thread struct {
	PinID   string
	replies []models.Reply
	seen    map[string]struct{}
}

func NewThread(pinID string) *Thread {
	return &Thread{PinID: pinID, seen: make(map[string]struct{})}
}

// Add inserts r in created_at order and reports whether it was new. Replies
// for another pin are ignored.
func (t *Thread) Add(r models.Reply) bool {
	if r.PinID != t.PinID {
		return false
	}
	if _, ok := t.seen[r.ID]; ok {
		return false
	}
	t.seen[r.ID] = struct{}{}

	i := sort.Search(len(t.replies), func(i int) bool {
		return t.replies[i].CreatedAt.After(r.CreatedAt)
	})
	t.replies = append(t.replies, models.Reply{})
	copy(t.replies[i+1:], t.replies[i:])
	t.replies[i] = r
	return true
}

func (t *Thread) Len() int { return len(t.replies) }

// All returns a copy of the replies, oldest first.
func (t *Thread) All() []models.Reply {
	return append([]models.Reply(nil), t.replies...)
}
