// Package codec serializes letter maps and letter lists into the blobs stored
// alongside a game (mapping, reverse_mapping, correctly_guessed).
//
// Blobs are deterministic CBOR envelopes carrying a format version, so a
// schema change is detected instead of silently misread.
package codec

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/vytor/cryptogram/internal/errors"
)

// Version is the envelope format written by this package.
const Version = 1

type envelope struct {
	Version int               `cbor:"v"`
	Pairs   map[string]string `cbor:"m,omitempty"`
	Letters []string          `cbor:"l,omitempty"`
}

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// EncodeMapping serializes a letter -> letter map.
func EncodeMapping(m map[rune]rune) ([]byte, error) {
	env := envelope{Version: Version, Pairs: make(map[string]string, len(m))}
	for k, v := range m {
		if !isLetter(k) || !isLetter(v) {
			return nil, fmt.Errorf("encode mapping: %q->%q is not a letter pair", k, v)
		}
		env.Pairs[string(k)] = string(v)
	}
	return encMode.Marshal(env)
}

// DecodeMapping is the inverse of EncodeMapping. Any malformed input yields
// a SERIALIZATION_ERROR.
func DecodeMapping(what string, data []byte) (map[rune]rune, error) {
	env, err := decode(what, data)
	if err != nil {
		return nil, err
	}
	out := make(map[rune]rune, len(env.Pairs))
	for k, v := range env.Pairs {
		kr, ok1 := single(k)
		vr, ok2 := single(v)
		if !ok1 || !ok2 {
			return nil, errors.NewSerializationError(what, fmt.Errorf("entry %q->%q is not a letter pair", k, v))
		}
		out[kr] = vr
	}
	return out, nil
}

// EncodeLetters serializes a set of letters in sorted order.
func EncodeLetters(letters []rune) ([]byte, error) {
	sorted := append([]rune(nil), letters...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	env := envelope{Version: Version, Letters: make([]string, 0, len(sorted))}
	for _, r := range sorted {
		if !isLetter(r) {
			return nil, fmt.Errorf("encode letters: %q is not a letter", r)
		}
		env.Letters = append(env.Letters, string(r))
	}
	return encMode.Marshal(env)
}

// DecodeLetters is the inverse of EncodeLetters.
func DecodeLetters(what string, data []byte) ([]rune, error) {
	env, err := decode(what, data)
	if err != nil {
		return nil, err
	}
	out := make([]rune, 0, len(env.Letters))
	for _, s := range env.Letters {
		r, ok := single(s)
		if !ok {
			return nil, errors.NewSerializationError(what, fmt.Errorf("entry %q is not a letter", s))
		}
		out = append(out, r)
	}
	return out, nil
}

func decode(what string, data []byte) (envelope, error) {
	var env envelope
	if len(data) == 0 {
		return env, errors.NewSerializationError(what, fmt.Errorf("empty blob"))
	}
	if err := cbor.Unmarshal(data, &env); err != nil {
		return env, errors.NewSerializationError(what, err)
	}
	if env.Version != Version {
		return env, errors.NewSerializationError(what, fmt.Errorf("unsupported blob version %d", env.Version))
	}
	return env, nil
}

func isLetter(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func single(s string) (rune, bool) {
	rs := []rune(s)
	if len(rs) != 1 || !isLetter(rs[0]) {
		return 0, false
	}
	return rs[0], true
}
