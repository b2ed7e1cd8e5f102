package crypto

import "runtime"

// Wipe overwrites key material with zeros once it is no longer needed.
// Best-effort only: Go makes no erasure guarantee, but the noinline
// pragma and the KeepAlive keep the compiler from discarding the writes
// as dead stores.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
