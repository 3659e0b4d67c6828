package user

import (
	"errors"

	"socialapi/internal/platform/crypto"
)

var weakPasswordErrors = []error{
	crypto.ErrPasswordTooShort,
	crypto.ErrPasswordNoUpper,
	crypto.ErrPasswordNoLower,
	crypto.ErrPasswordNoNumber,
	crypto.ErrPasswordNoSpecialChar,
}

func isWeakPassword(err error) bool {
	for _, target := range weakPasswordErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
