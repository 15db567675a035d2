package export

import (
	"errors"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultBadgeSize = 256
	minBadgeSize     = 64
	maxBadgeSize     = 1024
)

var errEmptyBadge = errors.New("badge content is empty")

// BadgePNG renders code as a QR code PNG of size x size pixels. Sizes
// outside [64, 1024] fall back to DefaultBadgeSize.
func BadgePNG(code string, size int) ([]byte, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errEmptyBadge
	}
	if size < minBadgeSize || size > maxBadgeSize {
		size = DefaultBadgeSize
	}
	return qrcode.Encode(code, qrcode.Medium, size)
}
