package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// FieldName is the multipart field carrying the image.
const FieldName = "image"

// NamingFunc picks the stored file name for an upload.
type NamingFunc func(original string, now time.Time) string

// TimestampName prefixes the original base name with the upload time in
// milliseconds. Two uploads of the same name in the same millisecond collide.
func TimestampName(original string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), filepath.Base(original))
}

type Config struct {
	Dir       string
	URLPrefix string
	Naming    NamingFunc
	Now       func() time.Time
}

type Handler struct {
	cfg Config
}

func New(cfg Config) (*Handler, error) {
	if cfg.Dir == "" {
		return nil, errors.New("upload dir is empty")
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/uploads"
	}
	cfg.URLPrefix = "/" + strings.Trim(cfg.URLPrefix, "/")
	if cfg.Naming == nil {
		cfg.Naming = TimestampName
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Handler{cfg: cfg}, nil
}

func (h *Handler) Dir() string       { return h.cfg.Dir }
func (h *Handler) URLPrefix() string { return h.cfg.URLPrefix }

// FromRequest stores the image attached to the request, if any, and returns
// its reference path. No file, or a non-multipart body, yields "".
func (h *Handler) FromRequest(c echo.Context) (string, error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		return "", nil
	}

	fh, err := c.FormFile(FieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("read form file: %w", err)
	}
	return h.Save(fh)
}

func (h *Handler) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := h.cfg.Naming(fh.Filename, h.cfg.Now())
	dst, err := os.Create(filepath.Join(h.cfg.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(h.cfg.URLPrefix, name), nil
}

// Register serves stored files read-only under the URL prefix.
func (h *Handler) Register(e *echo.Echo) {
	e.Static(h.cfg.URLPrefix, h.cfg.Dir)
}
