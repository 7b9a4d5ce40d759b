package services

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// DefaultCodeLength is the length of generated short codes.
const DefaultCodeLength = 7

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CodeGenerator produces a random code of the given length.
type CodeGenerator func(length int) (string, error)

var charsetLen = big.NewInt(int64(len(charset)))

// GenerateCode returns length characters drawn uniformly from [A-Za-z0-9].
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("code length must be positive")
	}

	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
