package vault

import "bytes"

// MinPasswordLength is the shortest password the command line tools accept.
const MinPasswordLength = 6

// Passwords holds the two password domains. An empty password stores its
// group unencrypted.
type Passwords struct {
	Data     []byte
	Licenses []byte
}

// Single uses one password for both groups.
func Single(p []byte) Passwords {
	return Passwords{Data: p, Licenses: p}
}

// Shared reports whether both groups use the same non-empty password.
func (p Passwords) Shared() bool {
	return len(p.Data) > 0 && bytes.Equal(p.Data, p.Licenses)
}

// Wipe overwrites both passwords in memory.
func (p *Passwords) Wipe() {
	clear(p.Data)
	clear(p.Licenses)
	p.Data, p.Licenses = nil, nil
}
