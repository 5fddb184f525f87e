package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumericCode returns a zero padded random code with the given number of digits.
func NumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("numeric code: bad digit count %d", digits)
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("numeric code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
