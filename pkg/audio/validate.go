package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"transcriptor/pkg/models"
)

var supportedExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".flac": {},
	".opus": {}, ".ogg": {}, ".aac": {}, ".wma": {},
}

// ValidateSource checks that a path exists, is non-empty, and carries a
// supported audio extension, returning the stat'd size.
func ValidateSource(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: file not found: %s", models.ErrValidation, path)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", models.ErrValidation, path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: file is empty: %s", models.ErrValidation, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedExtensions[ext]; !ok {
		return 0, fmt.Errorf("%w: unsupported format %q", models.ErrValidation, ext)
	}

	return info.Size(), nil
}
