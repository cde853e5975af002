/**
 * @description
 * This file implements classification of ledger account addresses. The wallet
 * distinguishes two mutually exclusive address shapes: funded regular accounts
 * (strkey version 'G', an ed25519 public key) and contract accounts (strkey
 * version 'C'). Only regular accounts can be the source of a classic payment,
 * so most of the coordination core gates on IsRegularAccountID.
 *
 * Addresses are validated structurally: base32 decoding, version byte, payload
 * length, and the trailing CRC16-XModem checksum. No network call is involved.
 *
 * @dependencies
 * - encoding/base32: Standard Go library for strkey decoding.
 */

package domain

import "encoding/base32"

// Strkey version bytes for the two address shapes the wallet understands.
const (
	versionByteAccountID byte = 6 << 3 // 'G'
	versionByteContract  byte = 2 << 3 // 'C'
)

var strkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// AccountType labels the result of classifying an address string.
type AccountType string

const (
	AccountTypeRegular  AccountType = "regular"
	AccountTypeContract AccountType = "contract"
	AccountTypeInvalid  AccountType = "invalid"
)

// IsRegularAccountID reports whether address is a structurally valid regular
// account address (G...). Payment sending and stream watching both require
// this shape.
func IsRegularAccountID(address string) bool {
	return decodeStrkey(address, versionByteAccountID)
}

// IsContractAddress reports whether address is a structurally valid contract
// address (C...). Contract addresses are valid deposit destinations but can
// never be a classic payment source.
func IsContractAddress(address string) bool {
	return decodeStrkey(address, versionByteContract)
}

// ClassifyAccountID maps an address string to its account type. The two valid
// shapes are mutually exclusive by version byte.
func ClassifyAccountID(address string) AccountType {
	switch {
	case IsRegularAccountID(address):
		return AccountTypeRegular
	case IsContractAddress(address):
		return AccountTypeContract
	default:
		return AccountTypeInvalid
	}
}

// decodeStrkey checks a 56-character strkey against the expected version byte
// and its CRC16 checksum.
func decodeStrkey(address string, version byte) bool {
	if len(address) != 56 {
		return false
	}
	raw, err := strkeyEncoding.DecodeString(address)
	if err != nil || len(raw) != 35 {
		return false
	}
	if raw[0] != version {
		return false
	}
	// Checksum is little-endian CRC16-XModem over version byte + payload.
	want := uint16(raw[33]) | uint16(raw[34])<<8
	return crc16XModem(raw[:33]) == want
}

func crc16XModem(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
