package scene

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHex parses #rgb or #rrggbb (the '#' is optional).
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// normalizeHex returns s as lowercase #rrggbb, or fallback when s is invalid.
func normalizeHex(s, fallback string) string {
	c, err := ParseHex(s)
	if err != nil {
		return fallback
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
