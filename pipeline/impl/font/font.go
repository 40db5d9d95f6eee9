package font

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/freetype/truetype"
	imagefont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
)

// ErrFontLoad means no text can be rendered.
var ErrFontLoad = errors.New("failed to load font")

// Font measures and rasterises text at integer pixel sizes.
// Faces are cached per size; a Font is safe for concurrent use.
type Font struct {
	font *truetype.Font

	mu    sync.Mutex
	faces map[int]imagefont.Face
}

// Default returns Go Regular, which covers Latin, Greek and Cyrillic.
func Default() (*Font, error) {
	return parse(goregular.TTF)
}

// Load parses a TrueType font file. An empty path loads the default font.
func Load(path string) (*Font, error) {
	if path == "" {
		return Default()
	}
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	return parse(fontBytes)
}

// Note: Scripts outside of the default font need a font per language directory, mirroring
// the layout below. Fonts are renamed to the name of the font face.
// <basePath>/Japanese/SansSerif-Regular.ttf
// <basePath>/Korean/SansSerif-Regular.ttf
// <basePath>/Chinese/SansSerif-Regular.ttf
// <basePath>/Default/SansSerif-Regular.ttf
// Missing files fall back to the default font.
func ForLanguage(basePath string, tag language.Tag) (*Font, error) {
	if basePath == "" {
		return Default()
	}
	path := filepath.Join(basePath, languageDirectory(tag), "SansSerif-Regular.ttf")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return Load(path)
}

func parse(fontBytes []byte) (*Font, error) {
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	return &Font{font: parsed, faces: map[int]imagefont.Face{}}, nil
}

// Face returns the face for a size in pixels.
func (f *Font) Face(size int) (imagefont.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faceLocked(size)
}

func (f *Font) faceLocked(size int) (imagefont.Face, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrFontLoad, size)
	}
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face := truetype.NewFace(f.font, &truetype.Options{Size: float64(size), DPI: 72})
	f.faces[size] = face
	return face, nil
}

// MeasureString returns the advance width of text in pixels.
func (f *Font) MeasureString(text string, size int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.faceLocked(size)
	if err != nil {
		return 0, err
	}
	return float64(imagefont.MeasureString(face, text)) / 64, nil
}

func languageDirectory(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "ja":
		return "Japanese"
	case "ko":
		return "Korean"
	case "zh":
		return "Chinese"
	default:
		return "Default"
	}
}
