package relay

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/voxring/voxring/wire"
)

// Participant is one registered connection. It lives exactly as long as the
// connection that created it and belongs to at most one room at a time.
type Participant struct {
	ID   string
	Name string
	Pub  [32]byte

	conn net.Conn
	wmu  sync.Mutex
}

func newParticipant(conn net.Conn, name string, pub [32]byte) *Participant {
	return &Participant{
		ID:   uuid.NewString(),
		Name: name,
		Pub:  pub,
		conn: conn,
	}
}

// send writes one record to the participant's connection. Writes from the
// handler goroutine and from broadcasts race, so they serialize on wmu.
func (p *Participant) send(env wire.Envelope) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return wire.WriteMessage(p.conn, env)
}
