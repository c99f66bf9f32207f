package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

const uploadField = "files"

// UploadImages sends the files at paths as one multipart request and returns
// the media URLs the API assigned, in order. An empty paths slice makes no
// request.
func (c *Client) UploadImages(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return []string{}, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for idx, p := range paths {
		if err := addImagePart(mw, idx, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		url:         c.URL("listings/upload"),
		body:        &buf,
		contentType: mw.FormDataContentType(),
		auth:        true,
		fallback:    "upload failed",
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	if err := decodeJSON(body, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

func addImagePart(mw *multipart.Writer, idx int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	name := uploadName(path, idx)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, name))
	h.Set("Content-Type", imageContentType(name))

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read image %s: %w", path, err)
	}
	return nil
}

// uploadName is the last path element of path, or foto_<idx>.jpg when path
// has none.
func uploadName(path string, idx int) string {
	name := path
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		name = path[i+1:]
	}
	if name == "" {
		return fmt.Sprintf("foto_%d.jpg", idx)
	}
	return name
}

func imageContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
