package cipher

import (
	"fmt"
	"math/rand"
	"sort"
)

const alphabetSize = 26

// Key maps plaintext letters to cipher letters. A complete key is a
// permutation of the upper-case alphabet.
type Key map[rune]rune

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

// IsLetter reports whether r is an ASCII letter of either case.
func IsLetter(r rune) bool { return isUpper(r) || isLower(r) }

// Upper folds an ASCII letter to upper case and leaves anything else alone.
func Upper(r rune) rune {
	if isLower(r) {
		return r - 'a' + 'A'
	}
	return r
}

func lower(r rune) rune {
	if isUpper(r) {
		return r - 'A' + 'a'
	}
	return r
}

func alphabet() []rune {
	out := make([]rune, 0, alphabetSize)
	for r := 'A'; r <= 'Z'; r++ {
		out = append(out, r)
	}
	return out
}

// RandomKey draws a uniformly random derangement of the alphabet, so no
// letter ever encrypts to itself.
func RandomKey(rng *rand.Rand) Key {
	letters := alphabet()
	perm := make([]rune, len(letters))
	for {
		copy(perm, letters)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		if isDerangement(letters, perm) {
			break
		}
	}
	key := make(Key, alphabetSize)
	for i, p := range letters {
		key[p] = perm[i]
	}
	return key
}

func isDerangement(from, to []rune) bool {
	for i := range from {
		if from[i] == to[i] {
			return false
		}
	}
	return true
}

// Complete extends a partial injective key into a permutation of the
// alphabet. Unassigned letters map to themselves when that cipher letter is
// still free; the rest are paired in alphabetical order.
func Complete(partial Key) (Key, error) {
	key := make(Key, alphabetSize)
	used := make(map[rune]rune, len(partial))
	for p, c := range partial {
		up, uc := Upper(p), Upper(c)
		if !isUpper(up) || !isUpper(uc) {
			return nil, fmt.Errorf("key entry %q->%q is not a letter pair", p, c)
		}
		if prev, ok := key[up]; ok && prev != uc {
			return nil, fmt.Errorf("letter %q is mapped twice", up)
		}
		if owner, ok := used[uc]; ok && owner != up {
			return nil, fmt.Errorf("cipher letter %q is used by both %q and %q", uc, owner, up)
		}
		key[up] = uc
		used[uc] = up
	}

	var openPlain []rune
	for _, p := range alphabet() {
		if _, ok := key[p]; ok {
			continue
		}
		if _, taken := used[p]; !taken {
			key[p] = p
			used[p] = p
			continue
		}
		openPlain = append(openPlain, p)
	}
	var openCipher []rune
	for _, c := range alphabet() {
		if _, taken := used[c]; !taken {
			openCipher = append(openCipher, c)
		}
	}
	for i, p := range openPlain {
		key[p] = openCipher[i]
	}
	return key, nil
}

// Inverse returns the cipher -> plain map of a complete key.
func (k Key) Inverse() map[rune]rune {
	inv := make(map[rune]rune, len(k))
	for p, c := range k {
		inv[c] = p
	}
	return inv
}

// Valid reports whether k is a permutation of the upper-case alphabet.
func (k Key) Valid() bool {
	if len(k) != alphabetSize {
		return false
	}
	seen := make(map[rune]bool, alphabetSize)
	for p, c := range k {
		if !isUpper(p) || !isUpper(c) || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}

// Encrypt substitutes every ASCII letter of text through key, keeping case.
// Everything else passes through unchanged.
func Encrypt(text string, key map[rune]rune) string {
	return substitute(text, key)
}

// Decrypt is Encrypt with the reverse map.
func Decrypt(text string, reverse map[rune]rune) string {
	return substitute(text, reverse)
}

func substitute(text string, m map[rune]rune) string {
	out := []rune(text)
	for i, r := range out {
		switch {
		case isUpper(r):
			if c, ok := m[r]; ok {
				out[i] = c
			}
		case isLower(r):
			if c, ok := m[Upper(r)]; ok {
				out[i] = lower(c)
			}
		}
	}
	return string(out)
}

func sortedRunes(set map[rune]bool) []rune {
	out := make([]rune, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
