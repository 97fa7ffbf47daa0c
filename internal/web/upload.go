package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// FilesField is the multipart field carrying the selected files.
const FilesField = "files"

// multipartMemory is how much of a form ParseMultipartForm keeps in memory
// before spilling file parts to disk.
const multipartMemory = 32 << 20

// formOverhead allows for multipart boundaries and headers on top of the
// file payloads.
const formOverhead = 1 << 20

var (
	errFileTooLarge = errors.New("file too large")
	errTooManyFiles = errors.New("too many files")
	errInvalidForm  = errors.New("invalid upload form")
)

// readUploadedFiles reads every part of the "files" field into memory,
// enforcing the per-file size and file count limits. Parts without a file
// name are skipped: browsers send one when the picker is empty.
func (s *Server) readUploadedFiles(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	maxFiles := s.cfg.Upload.MaxFiles

	r.Body = http.MaxBytesReader(w, r.Body, maxSize*int64(maxFiles)+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", errFileTooLarge, mbe.Limit)
		}
		return nil, fmt.Errorf("%w: %w", errInvalidForm, err)
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	for _, fh := range r.MultipartForm.File[FilesField] {
		if fh.Filename != "" {
			headers = append(headers, fh)
		}
	}
	if len(headers) == 0 {
		return nil, core.ErrNoFiles
	}
	if len(headers) > maxFiles {
		return nil, fmt.Errorf("%w: %d selected, limit is %d", errTooManyFiles, len(headers), maxFiles)
	}

	files := make([]core.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh, maxSize)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader, maxSize int64) (core.UploadedFile, error) {
	name := filepath.Base(fh.Filename)
	if fh.Size > maxSize {
		return core.UploadedFile{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", errFileTooLarge, name, fh.Size, maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > maxSize {
		return core.UploadedFile{}, fmt.Errorf("%w: %s exceeds %d bytes", errFileTooLarge, name, maxSize)
	}
	return core.NewUploadedFile(name, data), nil
}
