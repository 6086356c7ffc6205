package store

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32

	// RFC 9106 second recommended option: 3 passes over 64 MiB.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// decoySalt feeds the stretch that runs for unknown usernames.
var decoySalt = [saltLen]byte{0x77, 0x68, 0x69, 0x73, 0x70, 0x65, 0x72, 0x77, 0x61, 0x6c, 0x6c, 0x2d, 0x30, 0x30, 0x30, 0x31}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	_, err := rand.Read(salt)
	if err != nil {
		return nil, fmt.Errorf("unable to generate salt, cause %w", err)
	}
	return salt, nil
}

func stretchPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keyLen)
}

func verifyPassword(password, salt, expected []byte) bool {
	got := stretchPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
