package app

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	holdCodePrefix         = "RES"
	confirmationCodePrefix = "CONF"
)

func newID() string {
	return uuid.NewString()
}

// newHoldCode returns a short customer-facing code, distinct from the hold ID.
func newHoldCode() string {
	return holdCodePrefix + shortToken()
}

func newConfirmationCode() string {
	return confirmationCodePrefix + shortToken()
}

func shortToken() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}
