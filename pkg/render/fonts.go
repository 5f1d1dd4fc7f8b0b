package render

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// fontCache hands out faces by pixel size. Without a TrueType font every size
// maps to the fixed basicfont face.
type fontCache struct {
	mu    sync.Mutex
	ttf   *truetype.Font
	faces map[int]font.Face
}

func newFontCache(path string) (*fontCache, error) {
	fc := &fontCache{faces: map[int]font.Face{}}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	fc.ttf = f
	return fc, nil
}

func (fc *fontCache) face(size float64) (font.Face, error) {
	if fc.ttf == nil {
		return basicfont.Face7x13, nil
	}
	key := int(math.Max(6, math.Round(size)))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if f, ok := fc.faces[key]; ok {
		return f, nil
	}
	f := truetype.NewFace(fc.ttf, &truetype.Options{
		Size:    float64(key),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	fc.faces[key] = f
	return f, nil
}
