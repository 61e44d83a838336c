// Package nfc owns tag acquisition and decoding of the student credential
// written on an NDEF tag.
package nfc

import (
	"strings"
	"unicode/utf8"
)

// headerLen is the NDEF Text record header the writer app puts before the
// text: status byte plus a two byte language code.
const headerLen = 3

// Record is one NDEF record as delivered by the reader bridge.
type Record struct {
	TNF     uint8
	Type    []byte
	Payload []byte
}

// Tag is the NDEF message read from a tag.
type Tag struct {
	ID      string
	Records []Record
}

// Credential is the decoded payload. It only lives for one confirmation attempt.
type Credential struct {
	Identity string
	Phone    string
	Secret   string
}

// Decode parses "<email>;<phone>;<secret>" from the first record. It returns
// nil when there is nothing usable on the tag; that is not an error.
func Decode(tag Tag) *Credential {
	if len(tag.Records) == 0 {
		return nil
	}
	payload := tag.Records[0].Payload
	if len(payload) <= headerLen {
		return nil
	}
	body := payload[headerLen:]
	if !utf8.Valid(body) {
		return nil
	}

	fields := strings.Split(string(body), ";")
	if len(fields) < 3 {
		return nil
	}
	c := &Credential{
		Identity: strings.TrimSpace(fields[0]),
		Phone:    strings.TrimSpace(fields[1]),
		Secret:   strings.TrimSpace(fields[2]),
	}
	if c.Identity == "" || c.Phone == "" || c.Secret == "" {
		return nil
	}
	return c
}

// TextPayload builds a payload in the layout Decode expects ("en" language code).
func TextPayload(identity, phone, secret string) []byte {
	text := identity + ";" + phone + ";" + secret
	out := make([]byte, 0, headerLen+len(text))
	out = append(out, 0x02, 'e', 'n')
	return append(out, text...)
}
