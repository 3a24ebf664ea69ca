package store

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"github.com/aldr/autonomi-service/internal/model"
)

const addressPrefix = "record_"

// Address derives the content address of a record: the BLAKE2b-256 digest
// of its JSON encoding with the id cleared.  Identical content always maps
// to the same address, so storing a record twice is idempotent.
func Address(rec model.HealthRecord) (string, error) {
	rec.ID = nil
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(b)
	return addressPrefix + hex.EncodeToString(sum[:]), nil
}
