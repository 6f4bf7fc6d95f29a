// Package filters holds the pure value transforms applied while validating
// remote catalog records.
package filters

import (
	"encoding/hex"
	"fmt"
	"html"
	"net/mail"
	"net/url"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// MaxTagLength is the maximum length of a normalized tag, in characters.
const MaxTagLength = 96

var accentStripper = runes.Remove(runes.In(unicode.Mn))

// Slugify lower-cases s, strips accents and collapses every run of
// non-alphanumeric characters into a single dash.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, accentStripper, norm.NFC), s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder
	sb.Grow(len(folded))
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
			continue
		}
		dash = true
	}
	return sb.String()
}

// NormalizeTag slugifies a tag name and clamps it to MaxTagLength characters.
func NormalizeTag(s string) string {
	tag := Slugify(s)
	if r := []rune(tag); len(r) > MaxTagLength {
		tag = string(r[:MaxTagLength])
	}
	return tag
}

// Lower lower-cases a string.
func Lower(s string) string {
	return strings.ToLower(s)
}

// NormalizeString trims whitespace, unescapes HTML entities and applies
// NFC normalization.
func NormalizeString(s string) string {
	return strings.TrimSpace(norm.NFC.String(html.UnescapeString(strings.TrimSpace(s))))
}

// EmptyNone maps blank strings to nil and passes other values through.
func EmptyNone(v any) any {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	return v
}

// Boolean coerces common boolean spellings.
func Boolean(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on", "t", "y":
			return true, nil
		case "false", "0", "no", "off", "f", "n", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected a boolean, got %v", v)
}

// Email validates an email address.
func Email(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", fmt.Errorf("invalid email address %q", s)
	}
	return s, nil
}

// URL validates an absolute URL with a scheme and a host.
func URL(s string) (string, error) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", s, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: absolute url expected", s)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ftps":
	default:
		return "", fmt.Errorf("invalid url %q: unsupported scheme %s", s, u.Scheme)
	}
	return s, nil
}

// Hash detects the hash algorithm of a hex digest from its length.
// Unknown lengths and non hexadecimal values yield nil.
func Hash(s string) *models.Checksum {
	s = strings.TrimSpace(s)
	if _, err := hex.DecodeString(s); err != nil {
		return nil
	}
	var kind string
	switch len(s) {
	case 32:
		kind = "md5"
	case 40:
		kind = "sha1"
	case 64:
		kind = "sha256"
	default:
		return nil
	}
	return &models.Checksum{Type: kind, Value: strings.ToLower(s)}
}

// ParseSize parses a human readable size such as "1.2 MB" into bytes.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}
