// Package random provides utilities for generating random strings.
package random

import (
	"crypto/rand"
	"math/big"
)

// DefaultPasswordLength is the length of generated reset passwords.
const DefaultPasswordLength = 8

var allSeq [62]rune

// init fills the alphabet with digits, lowercase and uppercase letters.
func init() {
	n := 0
	for i := 0; i < 10; i++ {
		allSeq[n] = rune('0' + i)
		n++
	}
	for i := 0; i < 26; i++ {
		allSeq[n] = rune('a' + i)
		allSeq[n+26] = rune('A' + i)
		n++
	}
}

// Seq generates a random string of length n containing alphanumeric characters (numbers, lowercase and uppercase letters).
func Seq(n int) string {
	if n <= 0 {
		return ""
	}
	runes := make([]rune, n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(allSeq))))
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		runes[i] = allSeq[idx.Int64()]
	}
	return string(runes)
}

// Password generates a reset password of the given length, or
// DefaultPasswordLength when length is not positive.
func Password(length int) string {
	if length <= 0 {
		length = DefaultPasswordLength
	}
	return Seq(length)
}
