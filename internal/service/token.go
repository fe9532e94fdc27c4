package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// IssueToken derives a 64-character lowercase hex booking token. The
// digest mixes the caller's seed (a fresh intent id plus holder data)
// with the wall clock at nanosecond resolution and 16 bytes of
// cryptographically secure randomness, so tokens are unguessable and
// collisions are not a practical concern even under concurrent issuing.
func IssueToken(seed string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil)), nil
}
