package chqcal

import (
	"fmt"

	"github.com/google/uuid"
)

// uidNamespace seeds UID derivation. Changing it would re-key every stored
// event, so don't.
var uidNamespace = uuid.MustParse("b1c52c4d-6aa1-4e63-97e4-9d1c95f0b9d2")

// uidDomain suffixes UIDs so they are globally unique when they escape into
// ICS files and provider payloads.
const uidDomain = "chqcalendar.org"

// UIDFor derives the stable UID for an event. The same (source, id) pair
// always maps to the same UID, and nothing else feeds the derivation, so
// re-syncing an event can never change its identity.
func UIDFor(src Source, id EventID) EventUID {
	name := fmt.Sprintf("%s/%d", src, id)
	u := uuid.NewSHA1(uidNamespace, []byte(name))
	return EventUID(u.String() + "@" + uidDomain)
}
