// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

const (
	selfAuthenticatingTag = 0x02
	anonymousTag          = 0x04

	// maxPrincipalLength bounds the raw form.
	maxPrincipalLength = 29
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal identifies a caller to the backend. The zero value is
// not a valid principal; use Anonymous for the unauthenticated
// caller.
//
// Principal is comparable and usable as a map key. It marshals as its
// textual form in CBOR, JSON and YAML.
type Principal struct {
	raw string
}

// SelfAuthenticating derives the principal of a DER-encoded public
// key: SHA-224 of the key followed by the self-authenticating tag.
func SelfAuthenticating(derPublicKey []byte) Principal {
	digest := sha256.Sum224(derPublicKey)
	return Principal{raw: string(digest[:]) + string([]byte{selfAuthenticatingTag})}
}

// Anonymous returns the principal of an unsigned caller.
func Anonymous() Principal {
	return Principal{raw: string([]byte{anonymousTag})}
}

// FromBytes wraps raw principal bytes.
func FromBytes(raw []byte) (Principal, error) {
	if len(raw) == 0 || len(raw) > maxPrincipalLength {
		return Principal{}, fmt.Errorf("principal must be 1 to %d bytes, got %d", maxPrincipalLength, len(raw))
	}
	return Principal{raw: string(raw)}, nil
}

// ParsePrincipal parses the dash-grouped textual form and verifies its
// checksum.
func ParsePrincipal(text string) (Principal, error) {
	compact := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), "-", ""))
	decoded, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return Principal{}, fmt.Errorf("principal %q: %w", text, err)
	}
	if len(decoded) < 5 {
		return Principal{}, fmt.Errorf("principal %q is too short", text)
	}
	checksum, raw := decoded[:4], decoded[4:]
	if binary.BigEndian.Uint32(checksum) != crc32.ChecksumIEEE(raw) {
		return Principal{}, fmt.Errorf("principal %q has a bad checksum", text)
	}
	principal, err := FromBytes(raw)
	if err != nil {
		return Principal{}, err
	}
	if principal.String() != strings.ToLower(strings.TrimSpace(text)) {
		return Principal{}, fmt.Errorf("principal %q is not in canonical form", text)
	}
	return principal, nil
}

// MustParsePrincipal is ParsePrincipal for constants in tests and
// fixtures.
func MustParsePrincipal(text string) Principal {
	principal, err := ParsePrincipal(text)
	if err != nil {
		panic(err)
	}
	return principal
}

// Bytes returns the raw form.
func (p Principal) Bytes() []byte { return []byte(p.raw) }

// IsZero reports whether p is the zero value.
func (p Principal) IsZero() bool { return p.raw == "" }

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool { return p.raw == string([]byte{anonymousTag}) }

// Equal compares two principals.
func (p Principal) Equal(other Principal) bool {
	return p.raw == other.raw
}

// String renders the textual form: CRC-32 then raw bytes, base32,
// lower case, grouped in fives.
func (p Principal) String() string {
	if p.raw == "" {
		return ""
	}
	data := make([]byte, 4, 4+len(p.raw))
	binary.BigEndian.PutUint32(data, crc32.ChecksumIEEE([]byte(p.raw)))
	data = append(data, p.raw...)
	encoded := strings.ToLower(principalEncoding.EncodeToString(data))

	var grouped strings.Builder
	for index, r := range encoded {
		if index > 0 && index%5 == 0 {
			grouped.WriteByte('-')
		}
		grouped.WriteRune(r)
	}
	return grouped.String()
}

func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Principal{}
		return nil
	}
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
