// Package barcode encodes product identifiers as EAN-13 style symbols.
// The symbol is a fixed 3-digit prefix, the id zero-padded to 9 digits,
// and a mod-10 check digit.
package barcode

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// Prefix identifies codes generated by this system.
	Prefix = "370"

	maxID = 999999999
)

var (
	ErrInvalidID       = errors.New("l'identifiant doit être un entier positif")
	ErrInvalidFormat   = errors.New("le code-barres doit être une chaîne de 13 chiffres")
	ErrInvalidChecksum = errors.New("clé de contrôle invalide")
)

// Decoded holds the parts of a valid symbol.
type Decoded struct {
	Prefix     string
	ID         uint
	CheckDigit byte
}

// Encode builds the 13-digit symbol for a product id.
func Encode(id int64) (string, error) {
	if id < 0 || id > maxID {
		return "", fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	base := Prefix + fmt.Sprintf("%09d", id)
	return base + string(checkDigit(base)), nil
}

// Decode validates a 13-digit symbol and extracts the embedded id.
func Decode(code string) (Decoded, error) {
	if len(code) != 13 || !allDigits(code) {
		return Decoded{}, ErrInvalidFormat
	}
	if checkDigit(code[:12]) != code[12] {
		return Decoded{}, ErrInvalidChecksum
	}
	id, err := strconv.ParseUint(code[3:12], 10, 32)
	if err != nil {
		return Decoded{}, ErrInvalidFormat
	}
	return Decoded{Prefix: code[:3], ID: uint(id), CheckDigit: code[12]}, nil
}

// checkDigit computes the EAN-13 check digit over 12 digits:
// alternating weights 1 and 3, complement of the sum mod 10.
func checkDigit(base string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(base[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	rem := sum % 10
	if rem == 0 {
		return '0'
	}
	return byte('0' + 10 - rem)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
