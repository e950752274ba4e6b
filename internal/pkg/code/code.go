package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	min = 100000
	max = 999999
)

// New generates a uniformly random six-digit decimal code in
// [100000, 999999]. The leading digit is never zero, so the string
// form is always exactly six characters.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", min+n.Int64()), nil
}
