// Package relay implements the voxring room relay service.
//
// The relay accepts TCP connections, runs one goroutine per connection
// through the protocol state machine (register, then create or join a room,
// then a streaming loop), and forwards encrypted payload records between a
// room's members without decoding them. Each room owns a symmetric key and a
// fixed nonce minted at creation; the relay wraps that key individually for
// every joining participant so late joiners need no help from existing
// members.
//
// Rooms hold at most four members. A room is created lazily by the first
// participant that asks for one and destroyed the moment its member set
// becomes empty, at which point its code is immediately reusable.
package relay
