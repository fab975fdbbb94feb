package relay

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/voxring/voxring/crypto"
	"github.com/voxring/voxring/wire"
)

// MaxMembers bounds a room's member set.
const MaxMembers = 4

// Room owns one room's key material and member registry.
//
// All membership mutation and all broadcast enumeration happen under a
// single mutex, so joins and leaves can never race an in-flight broadcast's
// iteration. The (key, nonce) pair is minted once at creation and never
// rotated.
type Room struct {
	Code string

	key   crypto.RoomKey
	nonce crypto.Nonce

	mu      sync.Mutex
	members map[string]*Participant
}

// NewRoom mints a room with fresh key material.
func NewRoom(code string) (*Room, error) {
	key, err := crypto.GenerateRoomKey()
	if err != nil {
		return nil, fmt.Errorf("mint room key: %w", err)
	}

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("mint room nonce: %w", err)
	}

	return &Room{
		Code:    code,
		key:     key,
		nonce:   nonce,
		members: make(map[string]*Participant),
	}, nil
}

// Add admits a participant under a single critical section: capacity check,
// registration, key wrap, sym_key delivery, and the join notice to the other
// members. Beyond capacity it returns ErrRoomFull without mutating anything;
// the caller must then close the connection without admitting.
func (r *Room) Add(p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= MaxMembers {
		return ErrRoomFull
	}

	wrapped, err := crypto.WrapKey(r.key[:], p.Pub)
	if err != nil {
		return fmt.Errorf("wrap room key: %w", err)
	}

	r.members[p.ID] = p

	if err := p.send(wire.Envelope{
		Type:  wire.TypeSymKey,
		Data:  base64.StdEncoding.EncodeToString(wrapped),
		Nonce: base64.StdEncoding.EncodeToString(r.nonce[:]),
	}); err != nil {
		// The joiner died mid-admission; membership stands and the normal
		// cleanup path will remove it when the handler notices.
		logrus.WithFields(logrus.Fields{
			"room":        r.Code,
			"participant": p.ID,
			"error":       err.Error(),
		}).Debug("sym_key delivery failed")
	}

	r.broadcastLocked(wire.Envelope{
		Type: wire.TypeStatus,
		From: p.ID,
		Name: p.Name,
		Text: p.Name + " joined.",
	}, p)

	return nil
}

// Remove deregisters a participant and tells the remaining members.
// Removing an absent participant is a no-op. Reports whether the room is
// now empty.
func (r *Room) Remove(p *Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[p.ID]; !ok {
		return len(r.members) == 0
	}

	delete(r.members, p.ID)
	r.broadcastLocked(wire.Envelope{
		Type: wire.TypeLeave,
		From: p.ID,
		Name: p.Name,
	}, nil)

	return len(r.members) == 0
}

// Broadcast delivers env to every current member except exclude.
func (r *Room) Broadcast(env wire.Envelope, exclude *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(env, exclude)
}

// broadcastLocked requires r.mu. Delivery to each member is independently
// best-effort: a dead connection never aborts delivery to the others.
func (r *Room) broadcastLocked(env wire.Envelope, exclude *Participant) {
	for _, m := range r.members {
		if m == exclude {
			continue
		}
		if err := m.send(env); err != nil {
			logrus.WithFields(logrus.Fields{
				"room":        r.Code,
				"participant": m.ID,
				"type":        env.Type,
				"error":       err.Error(),
			}).Debug("broadcast delivery failed")
		}
	}
}

// MemberCount reports the current member set size.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
