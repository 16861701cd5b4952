// Package imageio handles everything the splitter core deliberately does
// not: locating image files, decoding them into pixel buffers, and writing
// extracted pages back to disk.
package imageio

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/local/mangasplit/internal/pixmap"
)

// supportedExts are the extensions the batch driver recognizes,
// case-insensitive.
var supportedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// IsSupported reports whether the path carries a recognized image extension.
func IsSupported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Walk returns the supported image files under root in sorted order. A
// root that is itself a file yields just that file (when supported).
// Files whose magic bytes disagree with their extension are skipped with
// a warning; a renamed text file must not reach the decoder.
func Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	var paths []string
	if !info.IsDir() {
		if IsSupported(root) && verifyImage(root) {
			paths = append(paths, root)
		}
		return paths, nil
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSupported(path) {
			return nil
		}
		if !verifyImage(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// verifyImage confirms via magic bytes that the file really is an image.
func verifyImage(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("cannot sniff file type, skipping")
		return false
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		log.Warn().Str("file", path).Str("mime", mtype.String()).Msg("extension does not match content, skipping")
		return false
	}
	return true
}

// Load decodes an image file into a BGR pixel buffer.
func Load(path string) (*pixmap.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return pixmap.FromStdImage(src), nil
}

// Save encodes a page to target. The format follows the target extension.
func Save(img *pixmap.Image, target string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("output file already exists: %s", target)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	std := imaging.Clone(img.ToStdImage())
	if err := imaging.Save(std, target); err != nil {
		return fmt.Errorf("write image %s: %w", target, err)
	}
	return nil
}

// OutputExt picks the extension for pages extracted from source. WebP
// input falls back to PNG output: decoding WebP is supported but no
// maintained pure-Go encoder exists.
func OutputExt(source string) string {
	ext := filepath.Ext(source)
	if ext == "" || strings.EqualFold(ext, ".webp") {
		return ".png"
	}
	return ext
}

// CoverName names the single trimmed cover page for a source file.
func CoverName(source string) string {
	return stem(source) + "_cover" + OutputExt(source)
}

// PageNames names the two split pages in extraction order: right first,
// then left, matching right-to-left reading order.
func PageNames(source string) []string {
	ext := OutputExt(source)
	s := stem(source)
	return []string{s + "_R" + ext, s + "_L" + ext}
}

func stem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
