package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "media"
	DefaultImageMaxUploadSizeMB = 5
	MaxImageDimension           = 1600
	WebPQuality                 = 80
	MediaURLPrefix              = "/media"
)

// Upload folders under the media root.
const (
	FolderBlogImages      = "blog_images"
	FolderProfilePictures = "profile_pictures"
)

type UploadImageInput struct {
	UserID      uint
	Folder      string
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService normalizes uploads to WebP and stores them under the media root.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}
	return &ImageService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir is the directory served under /media.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// MaxUploadBytes is the largest accepted upload.
func (s *ImageService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

// Upload validates, resizes and stores the image, returning its public URL.
func (s *ImageService) Upload(_ context.Context, in UploadImageInput) (string, error) {
	if in.UserID == 0 {
		return "", models.NewValidationError("Invalid user")
	}
	if in.Folder != FolderBlogImages && in.Folder != FolderProfilePictures {
		return "", models.NewInternalError(fmt.Errorf("unknown upload folder %q", in.Folder))
	}
	if len(in.Content) == 0 {
		return "", models.NewFieldValidationError("image", "No file was submitted.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewFieldValidationError("image",
			fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewFieldValidationError("image", "Upload a valid image.")
	}
	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewFieldValidationError("image", "Upload a valid image.")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewFieldValidationError("image", "Image content type mismatch")
	}

	resized := resizeToFit(decoded, MaxImageDimension, MaxImageDimension)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := uuid.NewString() + ".webp"
	if err := writeBytesToFile(filepath.Join(s.mediaDir, in.Folder, name), encoded); err != nil {
		return "", models.NewInternalError(err)
	}
	return path.Join(MediaURLPrefix, in.Folder, name), nil
}

// Remove deletes a previously stored upload. URLs outside the media root are ignored.
func (s *ImageService) Remove(url string) {
	rel, ok := strings.CutPrefix(url, MediaURLPrefix+"/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return
	}
	_ = os.Remove(filepath.Join(s.mediaDir, filepath.FromSlash(rel)))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
