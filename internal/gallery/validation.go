package gallery

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"

	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
)

type mimeGroup string

const (
	mimeGroupImages mimeGroup = "images"
	mimeGroupVideos mimeGroup = "videos"
)

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/jpeg", "image/png", "image/webp"},
	mimeGroupVideos: {"video/mp4", "video/quicktime", "video/x-msvideo"},
}

// Windows-reserved characters; stripped so downloads work on every OS.
const forbiddenFileNameChars = `<>:"/\|?*`

// uploadLimits bounds sizes per mime group, bytes.
type uploadLimits struct {
	ImageMaxBytes int64
	VideoMaxBytes int64
}

// validateUpload rejects bad uploads before any storage or network work.
func validateUpload(fileName, mimeType string, sizeBytes int64, limits uploadLimits) (string, string, error) {
	clean := sanitizeFileName(fileName)
	if clean == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	mediaType, err := sniffMimeType(mimeType)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mime_type invalid")
	}

	group, ok := groupForMime(mediaType)
	if !ok {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("mime_type %s not allowed; use %s", mediaType, allowedMimeSummary()))
	}

	if sizeBytes <= 0 {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	limit := limits.ImageMaxBytes
	if group == mimeGroupVideos {
		limit = limits.VideoMaxBytes
	}
	if limit > 0 && sizeBytes > limit {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("size_bytes must be ≤ %d bytes for %s", limit, group))
	}

	return clean, mediaType, nil
}

func groupForMime(mediaType string) (mimeGroup, bool) {
	for group, types := range mimeGroupTypes {
		for _, candidate := range types {
			if strings.EqualFold(candidate, mediaType) {
				return group, true
			}
		}
	}
	return "", false
}

func isVideoMime(mediaType string) bool {
	group, ok := groupForMime(mediaType)
	return ok && group == mimeGroupVideos
}

func allowedMimeSummary() string {
	return "jpeg, png, or webp images and mp4, mov, or avi videos"
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." || clean == ".." {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case strings.ContainsRune(forbiddenFileNameChars, r) || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
