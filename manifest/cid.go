package manifest

import (
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CID returns the CIDv1 (raw codec, sha2-256 multihash) of data.
func CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// StreamCID is CID over a reader; it also returns the number of bytes read.
func StreamCID(r io.Reader) (cid.Cid, int64, error) {
	cr := &countingReader{r: r}
	sum, err := multihash.SumStream(cr, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, 0, err
	}
	return cid.NewCidV1(cid.Raw, sum), cr.n, nil
}

// FileCID is StreamCID over the file at path.
func FileCID(path string) (cid.Cid, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return cid.Undef, 0, err
	}
	defer f.Close()
	return StreamCID(f)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
