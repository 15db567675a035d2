package services

import (
	"strings"
	"time"

	"github.com/hrdesk/apiserver/types"
)

var licenseValidity = map[string]int{
	types.LicenseTypePrivate:      10,
	types.LicenseTypeProfessional: 5,
}

var licenseAliases = map[string]string{
	"private":      types.LicenseTypePrivate,
	"خاصة":         types.LicenseTypePrivate,
	"professional": types.LicenseTypeProfessional,
	"مهنية":        types.LicenseTypeProfessional,
}

// NormalizeLicenseType maps known spellings of a license class to its
// canonical name. Unknown values are returned trimmed and unchanged.
func NormalizeLicenseType(licenseType string) string {
	trimmed := strings.TrimSpace(licenseType)
	if canonical, ok := licenseAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// LicenseExpiry derives the expiry date from the issuance date and license
// class. It returns nil when either input is missing or the class is unknown.
func LicenseExpiry(issued *time.Time, licenseType string) *time.Time {
	if issued == nil {
		return nil
	}
	years, ok := licenseValidity[NormalizeLicenseType(licenseType)]
	if !ok {
		return nil
	}
	expiry := addYears(*issued, years)
	return &expiry
}

// addYears keeps the day of month, clamping Feb 29 to Feb 28 in non-leap years.
func addYears(t time.Time, years int) time.Time {
	shifted := t.AddDate(years, 0, 0)
	if shifted.Day() != t.Day() {
		return shifted.AddDate(0, 0, -shifted.Day())
	}
	return shifted
}
