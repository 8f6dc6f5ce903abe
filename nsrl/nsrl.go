// Package nsrl extracts the NSRL MD5 byte-hash vectors: a hash list with one
// MD5 digest per line, paired by position with payload files byte0000.dat,
// byte0001.dat, ... in the same archive.
package nsrl

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmozeiko/overflow/vector"
)

// HashListName is the hash list resource inside NSRLvectors.zip.
const HashListName = "vectors/byte-hashes.md5"

// Marker prefixes of hash list lines that carry no digest.
var skipPrefixes = []string{"#", "<D", "D>", "H>"}

var payloadPattern = regexp.MustCompile(`^vectors/byte([0-9]{4,})\.dat$`)

// PayloadName returns the resource name of the i-th payload.
func PayloadName(i int) string {
	return fmt.Sprintf("vectors/byte%04d.dat", i)
}

// PayloadSource is the archive view the extractor needs.
type PayloadSource interface {
	Names() []string
	ReadFile(name string) ([]byte, error)
}

// ParseHashList reads the digests of a hash list in order. Digest lines may
// end with spaces and a '^' marker.
func ParseHashList(r io.Reader) ([][]byte, error) {
	var hashes [][]byte
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		line, rerr := reader.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return nil, vector.WrapError(vector.KindInternal, "HV-NSRL-999", "read failure", rerr)
		}
		if line != "" {
			lineNo++
			h, err := parseHashLine(line)
			if err != nil {
				return nil, vector.WrapError(vector.KindMalformedInput, vector.RuleID(err), fmt.Sprintf("%s line %d", HashListName, lineNo), err)
			}
			if h != nil {
				hashes = append(hashes, h)
			}
		}
		if rerr == io.EOF {
			break
		}
	}
	return hashes, nil
}

func parseHashLine(line string) ([]byte, error) {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(line, p) {
			return nil, nil
		}
	}
	s := strings.TrimRight(line, "\r\n ^")
	if s == "" {
		return nil, nil
	}
	h, err := hex.DecodeString(s)
	if err != nil {
		return nil, vector.WrapError(vector.KindMalformedInput, "HV-NSRL-001", "invalid digest hex", err)
	}
	if len(h) != md5.Size {
		return nil, vector.NewError(vector.KindMalformedInput, "HV-NSRL-002", fmt.Sprintf("digest has %d bytes, want %d", len(h), md5.Size))
	}
	return h, nil
}

// Extract pairs hashes[i] with payload i. The payload listing must contain
// exactly len(hashes) entries numbered 0..len(hashes)-1.
func Extract(hashes [][]byte, src PayloadSource) ([]vector.TestVector, error) {
	present := make(map[int]bool)
	for _, name := range src.Names() {
		m := payloadPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || PayloadName(idx) != name {
			return nil, vector.NewError(vector.KindArchiveIntegrity, "HV-ARC-006", fmt.Sprintf("unexpected payload name %s", name))
		}
		present[idx] = true
	}
	if len(present) != len(hashes) {
		return nil, vector.NewError(vector.KindArchiveIntegrity, "HV-ARC-004",
			fmt.Sprintf("hash list has %d digests but archive has %d payloads", len(hashes), len(present)))
	}

	out := make([]vector.TestVector, 0, len(hashes))
	for i, h := range hashes {
		name := PayloadName(i)
		if !present[i] {
			return nil, vector.NewError(vector.KindArchiveIntegrity, "HV-ARC-005", fmt.Sprintf("missing payload %s", name))
		}
		msg, err := src.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, vector.New(bytes.Clone(h), msg))
	}
	return out, nil
}

// FromArchive reads the hash list from src and extracts every vector.
func FromArchive(src PayloadSource) ([]vector.TestVector, error) {
	list, err := src.ReadFile(HashListName)
	if err != nil {
		return nil, err
	}
	hashes, err := ParseHashList(bytes.NewReader(list))
	if err != nil {
		return nil, err
	}
	return Extract(hashes, src)
}
