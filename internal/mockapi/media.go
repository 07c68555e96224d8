package mockapi

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxMediaBytes = 5 << 20

var errMediaTooLarge = errors.New("image must be 5 MB or smaller")

type mediaFile struct {
	contentType string
	data        []byte
}

// mediaStore holds uploaded product images in memory, keyed by a
// generated file name.
type mediaStore struct {
	mu    sync.RWMutex
	files map[string]mediaFile
}

func newMediaStore() *mediaStore {
	return &mediaStore{files: map[string]mediaFile{}}
}

func (m *mediaStore) put(filename, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxMediaBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxMediaBytes {
		return "", errMediaTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	name := uuid.NewString() + strings.ToLower(path.Ext(filename))
	m.mu.Lock()
	m.files[name] = mediaFile{contentType: contentType, data: data}
	m.mu.Unlock()
	return name, nil
}

func (m *mediaStore) get(name string) (mediaFile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	return f, ok
}

// mediaURL is the absolute URL an uploaded file is served from.
func mediaURL(c echo.Context, name string) string {
	return c.Scheme() + "://" + c.Request().Host + "/media/" + name
}

func (s *Server) ServeMedia(c echo.Context) error {
	f, ok := s.media.get(c.Param("name"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.Blob(http.StatusOK, f.contentType, f.data)
}
