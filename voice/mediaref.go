package voice

import (
	"crypto/sha256"
	"encoding/hex"
)

// MediaRef identifies one remotely stored voice clip. It is immutable;
// equality of derived keys is equality of content identity. A ref with an
// empty locator belongs to a message that has no stable identity yet (for
// example one still awaiting a send acknowledgement) and cannot be played.
type MediaRef struct {
	Locator     string // where the bytes live (URL or path)
	MimeType    string
	DisplayName string
}

// HasIdentity reports whether the ref can be fetched and cached.
func (r MediaRef) HasIdentity() bool {
	return r.Locator != ""
}

// Key derives the cache identifier for the ref. The same locator and mime
// type always map to the same key, across sessions and coordinator
// instances; the display name carries no identity.
func (r MediaRef) Key() string {
	h := sha256.New()
	h.Write([]byte(r.Locator))
	h.Write([]byte{0})
	h.Write([]byte(r.MimeType))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
