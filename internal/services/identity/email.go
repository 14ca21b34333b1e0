package identity

import "strings"

// NormalizeEmail is the single canonical form used for every principal lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayNameOrLocalPart returns name, or falls back to the local part of the address.
func DisplayNameOrLocalPart(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
