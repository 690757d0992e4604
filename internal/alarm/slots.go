package alarm

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Purpose distinguishes the external-service id spaces derived from one
// schedule id: its two timers, its notification, and the notification's
// actions.
type Purpose uint8

const (
	PrimaryAlarm Purpose = iota
	SnoozeAlarm
	Notification
	OpenAppAction
	MarkGivenAction
	SnoozeAction
)

// One fixed 32-bit pattern per purpose. XORing the hashed schedule id with
// these keeps the same schedule's slots disjoint across purposes no matter
// how large ids grow, unlike an additive offset.
var purposeMask = [...]uint32{
	PrimaryAlarm:    0x00000000,
	SnoozeAlarm:     0x9E3779B9,
	Notification:    0x3C6EF372,
	OpenAppAction:   0xDAA66D2B,
	MarkGivenAction: 0x78DDE6E4,
	SnoozeAction:    0x1715609D,
}

// Slot maps a schedule id and a purpose to a 32-bit identifier in the
// timer/notification services' namespace. Schedule ids are unbounded, so
// the id is hashed wide and folded rather than truncated; collisions
// between different schedules are possible in principle but vanishingly
// rare at realistic schedule counts.
func Slot(scheduleID int64, p Purpose) int32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(scheduleID))
	h := xxhash.Sum64(buf[:])
	folded := uint32(h) ^ uint32(h>>32)
	return int32(folded ^ purposeMask[p])
}
