package lock

import (
	"crypto/sha256"
	"strings"
)

// Integer identifying a system-wide lock object.
type Key int

const (
	bubbleVowels     = "aeiouy"
	bubbleConsonants = "bcdfghklmnprstvzx"
)

// Derives the lock key for a lock file path.
//
// The path is hashed with SHA-256, the digest is rendered with the Bubble
// Babble encoding, and the byte values of the encoding are summed into a
// 16-bit checksum. The path does not need to exist. Distinct paths can
// collide; with 101 characters per encoding this is unlikely but possible.
func KeyOf(path string) Key {
	sum := sha256.Sum256([]byte(path))
	encoded := Bubblebabble(sum[:])

	var k int
	for i := 0; i < len(encoded); i++ {
		k += int(encoded[i])
	}
	return Key(k % (1 << 16))
}

// Encodes data with the Bubble Babble binary data encoding.
//
// The output is a sequence of pronounceable five-letter groups separated by
// dashes and framed by an 'x' on each side.
func Bubblebabble(data []byte) string {
	var b strings.Builder
	b.WriteByte('x')

	seed := 1
	rounds := len(data)/2 + 1
	for i := 0; i < rounds; i++ {
		if i+1 < rounds || len(data)%2 != 0 {
			b1 := int(data[2*i])
			b.WriteByte(bubbleVowels[(((b1>>6)&3)+seed)%6])
			b.WriteByte(bubbleConsonants[(b1>>2)&15])
			b.WriteByte(bubbleVowels[((b1&3)+seed/6)%6])
			if i+1 < rounds {
				b2 := int(data[2*i+1])
				b.WriteByte(bubbleConsonants[(b2>>4)&15])
				b.WriteByte('-')
				b.WriteByte(bubbleConsonants[b2&15])
				seed = (seed*5 + b1*7 + b2) % 36
			}
			continue
		}
		b.WriteByte(bubbleVowels[seed%6])
		b.WriteByte(bubbleConsonants[16])
		b.WriteByte(bubbleVowels[seed/6])
	}

	b.WriteByte('x')
	return b.String()
}
