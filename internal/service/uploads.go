package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
)

// Upload limits.
const (
	MaxImageSize = 10 << 20
	MaxFileSize  = 5 << 20
	UploadTTL    = 60 * time.Second
)

// productFileExt is the extension of sellable workflow files; the image proxy never serves it.
const productFileExt = ".json"

var allowedImageTypes = map[string][]string{
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/webp": {".webp"},
	"image/gif":  {".gif"},
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// UploadRequest describes a file the client wants to upload.
type UploadRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// Upload is a presigned upload target plus the URL to store once uploaded.
type Upload struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
}

// UploadService issues upload URLs and proxies image reads.
type UploadService interface {
	// PresignImage validates an image and returns a proxied display URL.
	PresignImage(ctx context.Context, userID string, req UploadRequest, origin string) (Upload, error)
	// PresignFile validates a workflow file and returns its storage URL.
	PresignFile(ctx context.Context, userID string, req UploadRequest) (Upload, error)
	// OpenImage streams an object referenced by its URL. Workflow files are refused.
	OpenImage(ctx context.Context, rawURL string) (io.ReadCloser, string, error)
}

type UploadServiceImpl struct {
	store ObjectStore
	now   func() time.Time
	log   *zap.Logger
}

// NewUploadService constructs UploadService.
func NewUploadService(store ObjectStore, log *zap.Logger) *UploadServiceImpl {
	return &UploadServiceImpl{store: store, now: time.Now, log: orNop(log)}
}

// SanitizeFileName splits name into a safe base and its lower-cased extension.
func SanitizeFileName(name string) (base, ext string) {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext = strings.ToLower(path.Ext(name))
	base = unsafeName.ReplaceAllString(strings.TrimSuffix(name, path.Ext(name)), "")
	if base == "" {
		base = "file"
	}
	return base, ext
}

// sellerFilePrefix is the key prefix of workflow files uploaded by userID.
func sellerFilePrefix(userID string) string {
	return "files/" + unsafeName.ReplaceAllString(userID, "") + "/"
}

// ownsFileKey reports whether key names a workflow file uploaded by userID.
func ownsFileKey(key, userID string) bool {
	return path.Clean(key) == key &&
		strings.HasPrefix(key, sellerFilePrefix(userID)) &&
		strings.HasSuffix(strings.ToLower(key), productFileExt)
}

func (s *UploadServiceImpl) key(prefix, userID, base, ext string) string {
	return fmt.Sprintf("%s/%s/%d-%s%s", prefix, unsafeName.ReplaceAllString(userID, ""), s.now().UnixMilli(), base, ext)
}

// PresignImage checks size, MIME type and that the extension matches the MIME type.
func (s *UploadServiceImpl) PresignImage(ctx context.Context, userID string, req UploadRequest, origin string) (Upload, error) {
	if req.FileSize <= 0 || req.FileSize > MaxImageSize {
		return Upload{}, errs.Validation("file too large (max 10MB)")
	}
	exts, ok := allowedImageTypes[req.FileType]
	if !ok {
		return Upload{}, errs.Validation("file type not allowed: " + req.FileType)
	}
	base, ext := SanitizeFileName(req.FileName)
	if !slices.Contains(exts, ext) {
		s.log.Warn("upload extension does not match type",
			zap.String("user_id", userID), zap.String("type", req.FileType), zap.String("ext", ext))
		return Upload{}, errs.Validation("invalid file extension for the provided file type")
	}

	key := s.key("images", userID, base, ext)
	up, err := s.store.PresignPut(ctx, key, req.FileType, base+ext, UploadTTL)
	if err != nil {
		return Upload{}, err
	}
	display := strings.TrimRight(origin, "/") + "/api/image?url=" + url.QueryEscape(s.store.URL(key))
	return Upload{UploadURL: up, FileURL: display}, nil
}

// PresignFile accepts only workflow JSON files.
func (s *UploadServiceImpl) PresignFile(ctx context.Context, userID string, req UploadRequest) (Upload, error) {
	if req.FileSize <= 0 || req.FileSize > MaxFileSize {
		return Upload{}, errs.Validation("file too large (max 5MB)")
	}
	base, ext := SanitizeFileName(req.FileName)
	if ext != productFileExt || (req.FileType != "" && req.FileType != "application/json") {
		return Upload{}, errs.Validation("workflow files must be .json")
	}
	key := s.key("files", userID, base, ext)
	up, err := s.store.PresignPut(ctx, key, "application/json", base+ext, UploadTTL)
	if err != nil {
		return Upload{}, err
	}
	return Upload{UploadURL: up, FileURL: s.store.URL(key)}, nil
}

// OpenImage resolves the object key and streams it.
func (s *UploadServiceImpl) OpenImage(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, "", errs.Validation("missing url")
	}
	key, err := s.store.KeyFromURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	if strings.HasSuffix(strings.ToLower(key), productFileExt) {
		return nil, "", fmt.Errorf("%w: file type not served", errs.ErrForbidden)
	}
	body, ctype, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if ctype == "" {
		ctype = "image/jpeg"
	}
	return body, ctype, nil
}
