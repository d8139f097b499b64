// Package validation provides field validation for host monitor entities.
// Hostname rules follow RFC 1123: dot-separated labels of letters, digits and
// hyphens, each 1-63 characters, not starting or ending with a hyphen.
package validation

import (
	"fmt"
	"net"
	"strings"
)

const (
	// MinPingCount and MaxPingCount bound the echo attempts of one probe.
	MinPingCount = 1
	MaxPingCount = 100

	maxHostnameLength = 253
	maxLabelLength    = 63
	maxNameLength     = 255

	// bcrypt only looks at the first 72 bytes.
	maxPasswordLength = 72
)

// isAlpha returns true if the byte is an ASCII letter.
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// isAlphaNum returns true if the byte is an ASCII letter or digit.
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isNum(b)
}

// ValidateHostName validates a host display name.
// Any printable text is accepted as long as it is not blank.
func ValidateHostName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidateHostAddress validates an IP address or hostname.
func ValidateHostAddress(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("address must not be empty")
	}
	if ip := net.ParseIP(addr); ip != nil {
		return nil
	}
	return validateHostname(addr)
}

func validateHostname(host string) error {
	host = strings.TrimSuffix(host, ".")
	if len(host) > maxHostnameLength {
		return fmt.Errorf("hostname must be at most %d characters", maxHostnameLength)
	}
	allNumeric := true
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return fmt.Errorf("hostname must not contain empty labels")
		}
		if len(label) > maxLabelLength {
			return fmt.Errorf("hostname labels must be at most %d characters", maxLabelLength)
		}
		if !isAlphaNum(label[0]) || !isAlphaNum(label[len(label)-1]) {
			return fmt.Errorf("hostname labels must start and end with a letter or number")
		}
		for _, b := range []byte(label) {
			if !isAlphaNum(b) && b != '-' {
				return fmt.Errorf("must be a valid IP address or hostname")
			}
			if !isNum(b) {
				allNumeric = false
			}
		}
	}
	// A dotted all-digit string is a malformed IP, not a hostname.
	if allNumeric {
		return fmt.Errorf("must be a valid IP address or hostname")
	}
	return nil
}

// NormalizeTagNames trims tag names and drops duplicates, keeping the first
// spelling. A blank name is an error.
func NormalizeTagNames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if err := ValidateTagName(name); err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// ValidateTagName validates a single tag name.
func ValidateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag names must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("tag names must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidateEmail validates an email address of the form local@domain.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email must not be empty")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("email must not contain whitespace")
	}
	atIndex := strings.LastIndex(email, "@")
	if atIndex < 1 {
		return fmt.Errorf("email must contain '@' after at least one character")
	}
	if atIndex == len(email)-1 {
		return fmt.Errorf("email must have domain after '@'")
	}
	return nil
}

// ValidatePassword validates a plaintext password before hashing.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

// ValidatePingCount checks that count is within the allowed echo budget.
func ValidatePingCount(count int) error {
	if count < MinPingCount || count > MaxPingCount {
		return fmt.Errorf("count must be between %d and %d", MinPingCount, MaxPingCount)
	}
	return nil
}
