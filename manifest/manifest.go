// Package manifest records what a generation run produced: the CID and
// size of every source archive and generated header. Two runs over the same
// archives produce byte-identical manifests.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mmozeiko/overflow/vector"
)

// FileName is the manifest written next to the generated headers.
const FileName = "manifest.yaml"

// Version of the manifest layout.
const Version = 1

// Source is one input archive.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	CID  string `yaml:"cid"`
	Size int64  `yaml:"size"`
}

// Entry is one generated file.
type Entry struct {
	Name    string `yaml:"name"`
	CID     string `yaml:"cid"`
	Size    int64  `yaml:"size"`
	Records int    `yaml:"records"`
}

type Manifest struct {
	Version int      `yaml:"version"`
	Sources []Source `yaml:"sources"`
	Files   []Entry  `yaml:"files"`
}

// New returns an empty manifest of the current version.
func New() *Manifest {
	return &Manifest{Version: Version}
}

// AddSource records an input archive.
func (m *Manifest) AddSource(s Source) {
	m.Sources = append(m.Sources, s)
}

// AddFile records a generated file from its bytes.
func (m *Manifest) AddFile(name string, data []byte, records int) error {
	id, err := CID(data)
	if err != nil {
		return vector.WrapError(vector.KindInternal, "HV-MAN-001", fmt.Sprintf("cid %s", name), err)
	}
	m.Files = append(m.Files, Entry{Name: name, CID: id.String(), Size: int64(len(data)), Records: records})
	return nil
}

// Lookup finds a generated file by name.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	for _, e := range m.Files {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func (m *Manifest) sort() {
	sort.Slice(m.Sources, func(i, j int) bool { return m.Sources[i].Name < m.Sources[j].Name })
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Name < m.Files[j].Name })
}

// Marshal renders the manifest with entries sorted by name.
func (m *Manifest) Marshal() ([]byte, error) {
	m.sort()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, vector.WrapError(vector.KindInternal, "HV-MAN-002", "encode manifest", err)
	}
	if err := enc.Close(); err != nil {
		return nil, vector.WrapError(vector.KindInternal, "HV-MAN-002", "encode manifest", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses manifest bytes.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, vector.WrapError(vector.KindMalformedInput, "HV-MAN-003", "decode manifest", err)
	}
	if m.Version != Version {
		return nil, vector.NewError(vector.KindMalformedInput, "HV-MAN-004", fmt.Sprintf("unsupported manifest version %d", m.Version))
	}
	return &m, nil
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(b)
}

// Diff lists every generated file whose CID or presence differs between want
// and got. An empty result means the outputs are identical.
func Diff(want, got *Manifest) []string {
	var out []string
	for _, w := range want.Files {
		g, ok := got.Lookup(w.Name)
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s: missing", w.Name))
		case g.CID != w.CID:
			out = append(out, fmt.Sprintf("%s: cid %s, want %s", w.Name, g.CID, w.CID))
		}
	}
	for _, g := range got.Files {
		if _, ok := want.Lookup(g.Name); !ok {
			out = append(out, fmt.Sprintf("%s: unexpected", g.Name))
		}
	}
	sort.Strings(out)
	return out
}
