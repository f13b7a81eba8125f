package store

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Identity names one logical database instance: a database name plus the
// credential that unlocks it. An empty credential means an unencrypted file.
type Identity struct {
	Name       string
	Credential string
}

// String returns the name and whether a credential is set. The credential
// itself is never rendered.
func (id Identity) String() string {
	if id.Credential == "" {
		return id.Name
	}
	return id.Name + " (encrypted)"
}

// fingerprint returns the registry cache key for the identity.
// The name and credential are length-prefixed so ("ab","c") and ("a","bc")
// never collide, and the credential is only kept as a digest.
func (id Identity) fingerprint() string {
	h, _ := blake2b.New256(nil) //nolint:errcheck // Only fails for keys longer than 64 bytes
	writeField(h, id.Name)
	writeField(h, id.Credential)
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, s string) {
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(s)))
	w.Write(prefix[:]) //nolint:errcheck // hash.Hash writes never fail
	io.WriteString(w, s) //nolint:errcheck // hash.Hash writes never fail
}
