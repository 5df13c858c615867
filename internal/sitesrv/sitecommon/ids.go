package sitecommon

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const signingSecretLen = 43

// NewSigningSecret generates the per-tenant signing secret handed to the
// tenant's own runtime. Opaque to this service; we only generate and store it.
func NewSigningSecret() string {
	s, err := gonanoid.New(signingSecretLen)
	if err != nil {
		// nanoid only fails when the OS entropy source does; nothing sane to
		// do at that point.
		panic(err)
	}
	return s
}
