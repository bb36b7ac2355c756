// Package fingerprint normalises caller-supplied opaque key bytes into a
// stable, hashable identifier.
//
// The hash is deliberately the minimum needed to reproduce the observable
// behaviour of the original tmem driver: the padded key's first machine word
// reinterpreted as an unsigned integer. Stronger hashing would not change
// correctness, since internal/store always falls back to full key-byte
// equality on lookup — the hash only selects a shard/bucket.
//
// © 2025 arena-cache authors. MIT License.
package fingerprint

import "encoding/binary"

// wordBytes is the machine word width the original driver pads keys to.
const wordBytes = 8

// Fingerprint is the normalised form of a key: an owned, unpadded copy of
// the key bytes together with its derived 64-bit hash. The zero padding is
// applied only while deriving the hash; it is not kept in Key.
type Fingerprint struct {
	// Key is the original, *unpadded* key bytes, owned (safe to retain).
	Key []byte
	// Hash is derived from Key padded on the right with zero bytes to at
	// least wordBytes, so that keys shorter than a word collide
	// deterministically with their zero-padded form.
	Hash uint64
}

// Of computes the Fingerprint of key. The returned Key is a fresh copy; the
// caller may mutate the input slice afterwards without affecting it.
func Of(key []byte) Fingerprint {
	owned := make([]byte, len(key))
	copy(owned, key)

	padded := key
	if len(padded) < wordBytes {
		padded = make([]byte, wordBytes)
		copy(padded, key)
	}

	return Fingerprint{
		Key:  owned,
		Hash: binary.LittleEndian.Uint64(padded[:wordBytes]),
	}
}
