// Package archive gives indexed, read-only access to the resources of a
// cached zip archive.
package archive

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/mmozeiko/overflow/vector"
)

// Archive is an open zip archive. Resource names are the archive paths with
// '/' separators, directories excluded.
type Archive struct {
	name   string
	closer io.Closer
	files  map[string]*zip.File
	names  []string
}

// Open opens the zip file at path.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, vector.WrapError(vector.KindArchiveIntegrity, "HV-ARC-001", fmt.Sprintf("open archive %s", path), err)
	}
	return newArchive(path, &rc.Reader, rc), nil
}

// NewReader reads an archive of the given size from r. name is only used in
// error messages.
func NewReader(name string, r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, vector.WrapError(vector.KindArchiveIntegrity, "HV-ARC-001", fmt.Sprintf("open archive %s", name), err)
	}
	return newArchive(name, zr, nil), nil
}

func newArchive(name string, zr *zip.Reader, closer io.Closer) *Archive {
	a := &Archive{
		name:   name,
		closer: closer,
		files:  make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, dup := a.files[f.Name]; dup {
			continue
		}
		a.files[f.Name] = f
		a.names = append(a.names, f.Name)
	}
	return a
}

// Name is the path or label the archive was opened with.
func (a *Archive) Name() string { return a.name }

// Names lists resources in archive order.
func (a *Archive) Names() []string {
	return append([]string(nil), a.names...)
}

// Has reports whether the named resource exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// OpenFile opens a resource for streaming. A missing resource is an
// ArchiveIntegrity error.
func (a *Archive) OpenFile(name string) (io.ReadCloser, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, vector.NewError(vector.KindArchiveIntegrity, "HV-ARC-002", fmt.Sprintf("%s: missing resource %s", a.name, name))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, vector.WrapError(vector.KindArchiveIntegrity, "HV-ARC-003", fmt.Sprintf("%s: open %s", a.name, name), err)
	}
	return rc, nil
}

// ReadFile returns the full contents of a resource.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	rc, err := a.OpenFile(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, vector.WrapError(vector.KindArchiveIntegrity, "HV-ARC-003", fmt.Sprintf("%s: read %s", a.name, name), err)
	}
	return b, nil
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
