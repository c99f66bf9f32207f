package apistub

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reusemarket/gate/client"
)

const maxUploadFiles = 12

func (s *Server) listListings(c *gin.Context) {
	s.mu.RLock()
	out := make([]client.Listing, len(s.listings))
	copy(out, s.listings)
	s.mu.RUnlock()

	c.JSON(http.StatusOK, out)
}

func (s *Server) createListing(c *gin.Context) {
	var in client.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusUnprocessableEntity, "malformed listing")
		return
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		detail(c, http.StatusUnprocessableEntity, strings.TrimPrefix(err.Error(), client.ErrInvalidListing.Error()+": "))
		return
	}

	l := client.Listing{
		ID:          objectID(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		Images:      in.Images,
		Status:      in.Status,
	}

	s.mu.Lock()
	s.listings = append(s.listings, l)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, l)
}

func (s *Server) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		detail(c, http.StatusBadRequest, "expected multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		detail(c, http.StatusBadRequest, "no files")
		return
	}
	if len(files) > maxUploadFiles {
		detail(c, http.StatusBadRequest, fmt.Sprintf("at most %d files", maxUploadFiles))
		return
	}

	urls := make([]string, 0, len(files))
	stored := make(map[string]media, len(files))
	for _, fh := range files {
		ct := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "image/") {
			detail(c, http.StatusUnsupportedMediaType, "only images are accepted")
			return
		}
		data, err := readPart(fh)
		if err != nil {
			detail(c, http.StatusBadRequest, "unreadable file")
			return
		}
		name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		stored[name] = media{contentType: ct, data: data}
		urls = append(urls, mediaURL(c.Request, name))
	}

	s.mu.Lock()
	for name, m := range stored {
		s.media[name] = m
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, urls)
}

func (s *Server) serveMedia(c *gin.Context) {
	s.mu.RLock()
	m, ok := s.media[c.Param("name")]
	s.mu.RUnlock()
	if !ok {
		detail(c, http.StatusNotFound, "not found")
		return
	}
	c.Data(http.StatusOK, m.contentType, m.data)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	return data, nil
}

func mediaURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/media/" + name
}

// objectID returns 24 hex characters, the id shape the API uses.
func objectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
