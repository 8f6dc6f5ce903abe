// Package generator runs the fetch -> unzip -> parse -> format pipeline and
// writes the C headers consumed by the hashing test suite.
package generator

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mmozeiko/overflow/archive"
	"github.com/mmozeiko/overflow/cavp"
	"github.com/mmozeiko/overflow/config"
	"github.com/mmozeiko/overflow/emit"
	"github.com/mmozeiko/overflow/fetch"
	"github.com/mmozeiko/overflow/internal/fsutil"
	"github.com/mmozeiko/overflow/internal/logtrace"
	"github.com/mmozeiko/overflow/manifest"
	"github.com/mmozeiko/overflow/nsrl"
	"github.com/mmozeiko/overflow/vector"
)

// Generator owns one configured pipeline.
type Generator struct {
	cfg     config.Config
	fetcher *fetch.Client
}

// Option configures a Generator.
type Option func(*Generator)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f *fetch.Client) Option {
	return func(g *Generator) {
		if f != nil {
			g.fetcher = f
		}
	}
}

// New builds a Generator from cfg.
func New(cfg config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:     cfg,
		fetcher: fetch.NewClient(cfg.HTTPTimeout, fetch.WithUserAgent(cfg.UserAgent)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Artifact is one rendered header.
type Artifact struct {
	Name    string
	Data    []byte
	Records int
}

// Build is the in-memory result of rendering every header.
type Build struct {
	Artifacts []Artifact
	Manifest  *manifest.Manifest
}

// Artifact finds a rendered header by name.
func (b *Build) Artifact(name string) (Artifact, bool) {
	for _, a := range b.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

func (g *Generator) nsrlPath() string { return filepath.Join(g.cfg.CacheDir, config.NSRLArchive) }
func (g *Generator) cavpPath() string { return filepath.Join(g.cfg.CacheDir, config.CAVPArchive) }

// Fetch makes sure both archives are in the cache.
func (g *Generator) Fetch(ctx context.Context) error {
	jobs := []struct{ url, path string }{
		{g.cfg.NSRLURL, g.nsrlPath()},
		{g.cfg.CAVPURL, g.cavpPath()},
	}
	eg, ctx := errgroup.WithContext(ctx)
	if !g.cfg.Parallel {
		eg.SetLimit(1)
	}
	for _, j := range jobs {
		j := j
		eg.Go(func() error {
			_, err := g.fetcher.Ensure(ctx, j.url, j.path)
			return err
		})
	}
	return eg.Wait()
}

// Render parses the cached archives and renders every header in memory. It
// never touches the network.
func (g *Generator) Render(ctx context.Context) (*Build, error) {
	nsrlArc, err := archive.Open(g.nsrlPath())
	if err != nil {
		return nil, err
	}
	defer nsrlArc.Close()
	cavpArc, err := archive.Open(g.cavpPath())
	if err != nil {
		return nil, err
	}
	defer cavpArc.Close()

	artifacts := make([]Artifact, 1+len(Variants))
	eg, ctx := errgroup.WithContext(ctx)
	if !g.cfg.Parallel {
		eg.SetLimit(1)
	}
	eg.Go(func() error {
		a, err := g.renderNSRL(ctx, nsrlArc)
		artifacts[0] = a
		return err
	})
	for i, v := range Variants {
		i, v := i, v
		eg.Go(func() error {
			a, err := g.renderCAVP(ctx, cavpArc, v)
			artifacts[i+1] = a
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	m := manifest.New()
	for _, src := range []struct{ name, url, path string }{
		{config.NSRLArchive, g.cfg.NSRLURL, g.nsrlPath()},
		{config.CAVPArchive, g.cfg.CAVPURL, g.cavpPath()},
	} {
		id, size, err := manifest.FileCID(src.path)
		if err != nil {
			return nil, vector.WrapError(vector.KindInternal, "HV-GEN-001", fmt.Sprintf("cid %s", src.path), err)
		}
		m.AddSource(manifest.Source{Name: src.name, URL: src.url, CID: id.String(), Size: size})
	}
	for _, a := range artifacts {
		if err := m.AddFile(a.Name, a.Data, a.Records); err != nil {
			return nil, err
		}
	}
	return &Build{Artifacts: artifacts, Manifest: m}, nil
}

func (g *Generator) renderNSRL(ctx context.Context, arc *archive.Archive) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	vs, err := nsrl.FromArchive(arc)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", config.NSRLArchive, err)
	}
	if g.cfg.SelfCheck {
		for i, v := range vs {
			if err := checkDigest(md5.New, nsrl.PayloadName(i), i, v); err != nil {
				return Artifact{}, err
			}
		}
	}
	var buf bytes.Buffer
	if err := emit.Emit(&buf, vs); err != nil {
		return Artifact{}, err
	}
	logtrace.Debug(ctx, "rendered header", logtrace.Fields{
		logtrace.FieldModule:  "generator",
		logtrace.FieldFile:    NSRLOutput,
		logtrace.FieldRecords: len(vs),
	})
	return Artifact{Name: NSRLOutput, Data: buf.Bytes(), Records: len(vs)}, nil
}

func (g *Generator) renderCAVP(ctx context.Context, arc *archive.Archive, v Variant) (Artifact, error) {
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	for _, src := range v.Sources() {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		rc, err := arc.OpenFile(src)
		if err != nil {
			return Artifact{}, err
		}
		index := 0
		err = cavp.Each(rc, func(tv vector.TestVector) error {
			if g.cfg.SelfCheck {
				if err := checkDigest(v.New, src, index, tv); err != nil {
					return err
				}
			}
			index++
			return w.Write(tv)
		})
		rc.Close()
		if err != nil {
			return Artifact{}, fmt.Errorf("%s: %w", src, err)
		}
		logtrace.Debug(ctx, "parsed response file", logtrace.Fields{
			logtrace.FieldModule:  "generator",
			logtrace.FieldVariant: v.Name(),
			logtrace.FieldSource:  src,
			logtrace.FieldRecords: index,
		})
	}
	if err := w.Flush(); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: v.Output, Data: buf.Bytes(), Records: w.Count()}, nil
}

// Report summarizes a Generate or Verify run.
type Report struct {
	Files    []manifest.Entry
	Manifest *manifest.Manifest
}

// Generate fetches missing archives, renders every header and writes them,
// plus the manifest, into the output directory. Each file is replaced
// atomically.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	if err := g.Fetch(ctx); err != nil {
		return nil, err
	}
	b, err := g.Render(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range b.Artifacts {
		path := filepath.Join(g.cfg.OutDir, a.Name)
		if err := fsutil.WriteFile(path, a.Data, 0o644); err != nil {
			return nil, vector.WrapError(vector.KindInternal, "HV-GEN-002", fmt.Sprintf("write %s", path), err)
		}
		e, _ := b.Manifest.Lookup(a.Name)
		logtrace.Info(ctx, "wrote header", logtrace.Fields{
			logtrace.FieldModule:  "generator",
			logtrace.FieldPath:    path,
			logtrace.FieldRecords: a.Records,
			logtrace.FieldCID:     e.CID,
		})
	}
	data, err := b.Manifest.Marshal()
	if err != nil {
		return nil, err
	}
	mpath := filepath.Join(g.cfg.OutDir, manifest.FileName)
	if err := fsutil.WriteFile(mpath, data, 0o644); err != nil {
		return nil, vector.WrapError(vector.KindInternal, "HV-GEN-002", fmt.Sprintf("write %s", mpath), err)
	}
	return &Report{Files: b.Manifest.Files, Manifest: b.Manifest}, nil
}

// Verify re-renders every header from the cached archives and checks that
// the files in the output directory, and the manifest when one exists, match
// byte for byte.
func (g *Generator) Verify(ctx context.Context) (*Report, error) {
	b, err := g.Render(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := manifest.New()
	var drift []string
	for _, a := range b.Artifacts {
		path := filepath.Join(g.cfg.OutDir, a.Name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, vector.WrapError(vector.KindInternal, "HV-GEN-003", fmt.Sprintf("read %s", path), err)
		}
		if err := onDisk.AddFile(a.Name, data, 0); err != nil {
			return nil, err
		}
	}
	for _, d := range manifest.Diff(b.Manifest, onDisk) {
		drift = append(drift, "output "+d)
	}

	mpath := filepath.Join(g.cfg.OutDir, manifest.FileName)
	if recorded, err := manifest.Load(mpath); err == nil {
		for _, d := range manifest.Diff(b.Manifest, recorded) {
			drift = append(drift, "manifest "+d)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if len(drift) > 0 {
		return nil, vector.NewError(vector.KindVerify, "HV-VER-002", "generated files drifted: "+strings.Join(drift, "; "))
	}
	logtrace.Info(ctx, "generated files verified", logtrace.Fields{
		logtrace.FieldModule:  "generator",
		logtrace.FieldPath:    g.cfg.OutDir,
		logtrace.FieldRecords: len(b.Artifacts),
	})
	return &Report{Files: b.Manifest.Files, Manifest: b.Manifest}, nil
}
