package generator

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmozeiko/overflow/config"
	"github.com/mmozeiko/overflow/emit"
	"github.com/mmozeiko/overflow/manifest"
	"github.com/mmozeiko/overflow/nsrl"
	"github.com/mmozeiko/overflow/vector"
)

type zipEntry struct {
	name string
	data []byte
}

func zipBytes(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

var nsrlPayloads = [][]byte{{}, []byte("a"), []byte("abc"), bytes.Repeat([]byte{0xff}, 300)}

func nsrlZip(t *testing.T) []byte {
	t.Helper()
	var list strings.Builder
	list.WriteString("# MD5 hashes of byte0000.dat .. byte0003.dat\n<D\n")
	entries := []zipEntry{}
	for i, p := range nsrlPayloads {
		sum := md5.Sum(p)
		fmt.Fprintf(&list, "%s ^\n", strings.ToUpper(hex.EncodeToString(sum[:])))
		entries = append(entries, zipEntry{name: nsrl.PayloadName(i), data: p})
	}
	list.WriteString("D>\nH>\n")
	return zipBytes(t, append([]zipEntry{{name: nsrl.HashListName, data: []byte(list.String())}}, entries...))
}

func rspRecord(v Variant, msg []byte) string {
	h := v.New()
	h.Write(msg)
	m := hex.EncodeToString(msg)
	if len(msg) == 0 {
		m = "00"
	}
	return fmt.Sprintf("Len = %d\r\nMsg = %s\r\nMD = %x\r\n\r\n", 8*len(msg), m, h.Sum(nil))
}

func shortMsgs() [][]byte { return [][]byte{{}, []byte("a")} }
func longMsgs() [][]byte  { return [][]byte{bytes.Repeat([]byte("z"), 128)} }

func cavpZip(t *testing.T, corrupt string) []byte {
	t.Helper()
	var entries []zipEntry
	for _, v := range Variants {
		srcs := v.Sources()
		for i, msgs := range [][][]byte{shortMsgs(), longMsgs()} {
			var sb strings.Builder
			fmt.Fprintf(&sb, "#  CAVS 11.0\r\n#  \"%s\" information\r\n\r\n[L = %d]\r\n\r\n", v.Name(), v.New().Size())
			for _, m := range msgs {
				sb.WriteString(rspRecord(v, m))
			}
			body := sb.String()
			if srcs[i] == corrupt {
				body = strings.Replace(body, "Msg = 61", "Msg = 62", 1)
			}
			entries = append(entries, zipEntry{name: srcs[i], data: []byte(body)})
		}
	}
	return zipBytes(t, entries)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.CacheDir = filepath.Join(root, "cache")
	cfg.OutDir = filepath.Join(root, "generated")
	cfg.NSRLURL = "http://127.0.0.1:1/unused-nsrl"
	cfg.CAVPURL = "http://127.0.0.1:1/unused-cavp"
	require.NoError(t, os.MkdirAll(cfg.CacheDir, 0o755))
	return cfg
}

func seedCache(t *testing.T, cfg config.Config, corrupt string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.CacheDir, config.NSRLArchive), nsrlZip(t), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.CacheDir, config.CAVPArchive), cavpZip(t, corrupt), 0o644))
}

func readOutputs(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, name := range append(Outputs(), manifest.FileName) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		out[name] = string(b)
	}
	return out
}

func TestGenerate_WritesEveryHeader(t *testing.T) {
	cfg := testConfig(t)
	seedCache(t, cfg, "")

	rep, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Files, 6)

	files := readOutputs(t, cfg.OutDir)

	md5Lines := strings.Split(strings.TrimSuffix(files[NSRLOutput], "\n"), "\n")
	require.Len(t, md5Lines, len(nsrlPayloads))
	assert.Equal(t, `{ "\xd4\x1d\x8c\xd9\x8f\x00\xb2\x04\xe9\x80\x09\x98\xec\xf8\x42\x7e", "", 0 },`, md5Lines[0])
	assert.Equal(t, `{ "\x0c\xc1\x75\xb9\xc0\xf1\xb6\xa8\x31\xc3\x99\xe2\x69\x77\x26\x61", "\x61", 1 },`, md5Lines[1])
	assert.True(t, strings.HasSuffix(md5Lines[3], ", 300 },"))

	shaLines := strings.Split(strings.TrimSuffix(files["sha1_cavp.h"], "\n"), "\n")
	require.Len(t, shaLines, 3)
	assert.Equal(t, `{ "\xda\x39\xa3\xee\x5e\x6b\x4b\x0d\x32\x55\xbf\xef\x95\x60\x18\x90\xaf\xd8\x07\x09", "", 0 },`, shaLines[0])
	assert.Contains(t, shaLines[1], `"\x61", 1 },`)
	assert.True(t, strings.HasSuffix(shaLines[2], ", 128 },"), "long messages follow short messages")

	for _, e := range rep.Files {
		data := []byte(files[e.Name])
		id, err := manifest.CID(data)
		require.NoError(t, err)
		assert.Equal(t, id.String(), e.CID, e.Name)
		assert.EqualValues(t, len(data), e.Size)
	}
	e, ok := rep.Manifest.Lookup("sha512_cavp.h")
	require.True(t, ok)
	assert.Equal(t, 3, e.Records)
}

func TestGenerate_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	seedCache(t, cfg, "")

	_, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	first := readOutputs(t, cfg.OutDir)

	_, err = New(cfg).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, readOutputs(t, cfg.OutDir))

	cfg.Parallel = false
	_, err = New(cfg).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, readOutputs(t, cfg.OutDir), "scheduling must not change output bytes")
}

func TestVerify(t *testing.T) {
	cfg := testConfig(t)
	seedCache(t, cfg, "")
	g := New(cfg)

	_, err := g.Verify(context.Background())
	require.Error(t, err, "nothing generated yet")
	assert.True(t, vector.IsKind(err, vector.KindVerify))

	_, err = g.Generate(context.Background())
	require.NoError(t, err)
	_, err = g.Verify(context.Background())
	require.NoError(t, err)

	path := filepath.Join(cfg.OutDir, "sha256_cavp.h")
	require.NoError(t, os.WriteFile(path, []byte("{ \"\", \"\", 0 },\n"), 0o644))
	_, err = g.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HV-VER-002", vector.RuleID(err))
	assert.Contains(t, err.Error(), "sha256_cavp.h")
}

func TestRender_SelfCheck(t *testing.T) {
	cfg := testConfig(t)
	seedCache(t, cfg, "shabytetestvectors/SHA384ShortMsg.rsp")

	_, err := New(cfg).Render(context.Background())
	require.Error(t, err)
	assert.True(t, vector.IsKind(err, vector.KindVerify))
	assert.Equal(t, "HV-VER-001", vector.RuleID(err))
	assert.Contains(t, err.Error(), "SHA384ShortMsg.rsp")

	cfg.SelfCheck = false
	b, err := New(cfg).Render(context.Background())
	require.NoError(t, err)
	a, ok := b.Artifact("sha384_cavp.h")
	require.True(t, ok)
	assert.Contains(t, string(a.Data), `"\x62", 1 },`)
}

func TestRender_MissingResource(t *testing.T) {
	cfg := testConfig(t)
	seedCache(t, cfg, "")
	// Replace the CAVP archive with one lacking SHA512LongMsg.rsp.
	var entries []zipEntry
	for _, v := range Variants[:4] {
		for _, src := range v.Sources() {
			entries = append(entries, zipEntry{name: src, data: []byte("# empty\n")})
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(cfg.CacheDir, config.CAVPArchive), zipBytes(t, entries), 0o644))

	_, err := New(cfg).Render(context.Background())
	require.Error(t, err)
	assert.True(t, vector.IsKind(err, vector.KindArchiveIntegrity))
	assert.Equal(t, "HV-ARC-002", vector.RuleID(err))
}

func TestRender_MissingArchive(t *testing.T) {
	cfg := testConfig(t)
	_, err := New(cfg).Render(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HV-ARC-001", vector.RuleID(err))
}

func TestGenerate_FetchesMissingArchives(t *testing.T) {
	nsrlData := nsrlZip(t)
	cavpData := cavpZip(t, "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/" + config.NSRLArchive:
			_, _ = w.Write(nsrlData)
		case "/" + config.CAVPArchive:
			_, _ = w.Write(cavpData)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.NSRLURL = srv.URL + "/" + config.NSRLArchive
	cfg.CAVPURL = srv.URL + "/" + config.CAVPArchive

	_, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	cached, err := os.ReadFile(filepath.Join(cfg.CacheDir, config.CAVPArchive))
	require.NoError(t, err)
	assert.Equal(t, cavpData, cached)
}

func TestGenerate_TransportFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.NSRLURL = srv.URL + "/a"
	cfg.CAVPURL = srv.URL + "/b"

	_, err := New(cfg).Generate(context.Background())
	require.Error(t, err)
	assert.True(t, vector.IsKind(err, vector.KindTransport))

	_, statErr := os.Stat(cfg.OutDir)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestVariants(t *testing.T) {
	var names []string
	for _, v := range Variants {
		names = append(names, v.Name())
	}
	assert.Equal(t, []string{"SHA1", "SHA224", "SHA256", "SHA384", "SHA512"}, names)
	assert.Equal(t, []string{"shabytetestvectors/SHA256ShortMsg.rsp", "shabytetestvectors/SHA256LongMsg.rsp"}, Variants[2].Sources())
	assert.Equal(t, []string{NSRLOutput, "sha1_cavp.h", "sha224_cavp.h", "sha256_cavp.h", "sha384_cavp.h", "sha512_cavp.h"}, Outputs())
}

func TestEmittedRowsDecode(t *testing.T) {
	// Each emitted row matches the record emitter exactly.
	cfg := testConfig(t)
	seedCache(t, cfg, "")
	b, err := New(cfg).Render(context.Background())
	require.NoError(t, err)
	a, ok := b.Artifact("sha224_cavp.h")
	require.True(t, ok)

	h := Variants[1].New()
	_, _ = io.WriteString(h, "a")
	want := emit.Record(vector.New(h.Sum(nil), []byte("a")))
	assert.Contains(t, string(a.Data), want)
}
