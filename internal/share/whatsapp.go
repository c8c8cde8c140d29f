// Package share builds outbound share links for a note.
package share

import (
	"errors"
	"strings"
)

const whatsAppBase = "https://wa.me/?text="

// ErrEmpty is returned when both title and content are empty.
var ErrEmpty = errors.New("share: nothing to share")

// WhatsAppURL returns a wa.me deep link whose prefilled message is the title,
// a blank line and the content.
func WhatsAppURL(title, content string) (string, error) {
	if title == "" && content == "" {
		return "", ErrEmpty
	}
	return whatsAppBase + EncodeURIComponent(title+"\n\n"+content), nil
}

// EncodeURIComponent percent-encodes s as UTF-8, leaving only
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) unescaped.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
