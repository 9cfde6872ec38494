package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// MaxScriptBytes bounds the raw size of submitted script content.
const MaxScriptBytes = 1_000_000

// ScriptContent is validated, dialect-tagged script text. The value is
// never executed by this module; it is only scanned, hashed and
// packaged.
type ScriptContent struct {
	text    string
	dialect Dialect
}

// NewScriptContent validates raw script text. Content must be
// non-empty, valid UTF-8 and at most MaxScriptBytes bytes. The
// dangerous-pattern gate is enforced separately by the security
// scanner at every boundary that accepts content.
func NewScriptContent(text string, dialect Dialect) (ScriptContent, error) {
	if text == "" {
		return ScriptContent{}, fmt.Errorf("script content must not be empty")
	}
	if len(text) > MaxScriptBytes {
		return ScriptContent{}, fmt.Errorf("script content is %d bytes, exceeding the %d byte ceiling", len(text), MaxScriptBytes)
	}
	if !utf8.ValidString(text) {
		return ScriptContent{}, fmt.Errorf("script content is not valid UTF-8")
	}
	if _, err := ParseDialect(string(dialect)); err != nil {
		return ScriptContent{}, err
	}
	return ScriptContent{text: text, dialect: dialect}, nil
}

// Text returns the raw script text.
func (c ScriptContent) Text() string {
	return c.text
}

// Dialect returns the tagged script dialect.
func (c ScriptContent) Dialect() Dialect {
	return c.dialect
}

// Bytes returns the exact script bytes that are hashed and packaged.
func (c ScriptContent) Bytes() []byte {
	return []byte(c.text)
}

// Hash computes the content's SecurityHash.
func (c ScriptContent) Hash() SecurityHash {
	return HashBytes(c.Bytes())
}

// SecurityHash is the lowercase hex SHA-256 of exact script bytes,
// used for content-addressed identity and tamper detection between
// creation and installation time.
type SecurityHash string

// HashBytes hashes raw bytes into a SecurityHash. Identical input
// always produces an identical hash.
func HashBytes(b []byte) SecurityHash {
	sum := sha256.Sum256(b)
	return SecurityHash(hex.EncodeToString(sum[:]))
}

// ParseSecurityHash validates an externally supplied hash string.
func ParseSecurityHash(s string) (SecurityHash, error) {
	if len(s) != sha256.Size*2 {
		return "", fmt.Errorf("security hash must be %d hex characters, got %d", sha256.Size*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("security hash is not valid hex: %w", err)
	}
	return SecurityHash(s), nil
}

func (h SecurityHash) String() string {
	return string(h)
}
