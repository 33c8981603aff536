package wellness

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher produces salted one-way identifiers so snapshots cannot be joined
// back to users without the salt.
type Hasher struct {
	key []byte
}

// NewHasher returns a hasher keyed by salt. Salts longer than a BLAKE2b key
// are compressed first.
func NewHasher(salt string) *Hasher {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Hasher{key: key}
}

// UserHash returns the anonymized user identifier.
func (h *Hasher) UserHash(userID string) string {
	return h.sum("user:" + userID)
}

// RecordHash returns the identifier of one save of one user.
func (h *Hasher) RecordHash(userID, saveID string) string {
	return h.sum("record:" + userID + ":" + saveID)
}

func (h *Hasher) sum(s string) string {
	d, err := blake2b.New256(h.key)
	if err != nil {
		panic(err) // key length is bounded in NewHasher
	}
	d.Write([]byte(s))
	return hex.EncodeToString(d.Sum(nil))
}
