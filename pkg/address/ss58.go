// Package address implements the SS58 account address codec used by
// Substrate-family chains.
package address

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// Network prefixes for the chains this tool is usually pointed at.
const (
	PolkadotPrefix byte = 0
	KusamaPrefix   byte = 2
	GenericPrefix  byte = 42
)

// ss58Preamble is mixed into the checksum input, per the SS58 registry.
var ss58Preamble = []byte("SS58PRE")

const pubKeyLen = 32

// Encode renders a 32-byte public key as an SS58 address under the given
// network prefix. Only single-byte prefixes (0..63) are supported; that covers
// Polkadot, Kusama and generic Substrate.
func Encode(pubKey []byte, prefix byte) (string, error) {
	if len(pubKey) != pubKeyLen {
		return "", fmt.Errorf("public key must be %d bytes, got %d", pubKeyLen, len(pubKey))
	}
	if prefix > 63 {
		return "", fmt.Errorf("network prefix %d out of single-byte range", prefix)
	}
	payload := make([]byte, 0, 1+pubKeyLen+2)
	payload = append(payload, prefix)
	payload = append(payload, pubKey...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload), nil
}

// MustEncode is Encode for callers whose inputs are statically valid.
func MustEncode(pubKey []byte, prefix byte) string {
	addr, err := Encode(pubKey, prefix)
	if err != nil {
		panic(err)
	}
	return addr
}

// Decode parses an SS58 address, returning the embedded public key and the
// network prefix. The checksum is verified.
func Decode(addr string) (pubKey []byte, prefix byte, err error) {
	raw := base58.Decode(addr)
	if len(raw) != 1+pubKeyLen+2 {
		return nil, 0, fmt.Errorf("address %q has unexpected length %d", addr, len(raw))
	}
	payload, sum := raw[:1+pubKeyLen], raw[1+pubKeyLen:]
	if !bytes.Equal(sum, checksum(payload)) {
		return nil, 0, fmt.Errorf("address %q has an invalid checksum", addr)
	}
	return payload[1:], payload[0], nil
}

// Valid reports whether addr parses as a well-formed SS58 address.
func Valid(addr string) bool {
	_, _, err := Decode(addr)
	return err == nil
}

func checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Preamble)
	h.Write(payload)
	return h.Sum(nil)[:2]
}
