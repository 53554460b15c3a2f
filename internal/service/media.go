package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload folders below the media root.
const (
	FolderActors = "actors"
	FolderMovies = "movies"
	FolderShots  = "movie_shots"
)

// UploadFolders lists every folder MediaStore writes to.
var UploadFolders = []string{FolderActors, FolderMovies, FolderShots}

// MaxUploadSize caps a single image upload.
const MaxUploadSize = 10 << 20

var (
	ErrNotImage     = errors.New("file is not a supported image")
	ErrFileTooLarge = errors.New("file is too large")
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// MediaStore keeps uploaded images on disk and hands out their public URLs.
type MediaStore struct {
	root    string
	baseURL string
}

func NewMediaStore(root, baseURL string) *MediaStore {
	return &MediaStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MediaStore) Root() string { return m.root }

// SaveFile stores a multipart upload in folder.
func (m *MediaStore) SaveFile(fh *multipart.FileHeader, folder string) (string, error) {
	if fh.Size > MaxUploadSize {
		return "", ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return m.Save(f, folder)
}

// Save sniffs r, stores it under a random name in folder and returns its URL.
func (m *MediaStore) Save(r io.Reader, folder string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxUploadSize {
		return "", ErrFileTooLarge
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), imageTypes...) {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mtype.String())
	}

	dir := filepath.Join(m.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return m.URL(path.Join(folder, name)), nil
}

// URL maps a path relative to the media root to its public URL.
func (m *MediaStore) URL(rel string) string {
	return m.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}

// Rel maps a public URL back to its path relative to the media root.
// ok is false for URLs outside the store.
func (m *MediaStore) Rel(url string) (string, bool) {
	prefix := m.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(url, prefix))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}
