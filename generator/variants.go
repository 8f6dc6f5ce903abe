package generator

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// NSRLOutput is the header generated from the NSRL archive.
const NSRLOutput = "md5_nsrl.h"

// Variant is one SHA family member of the CAVP archive.
type Variant struct {
	Bits   int
	Output string
	New    func() hash.Hash
}

// Variants lists the CAVP variants in generation order.
var Variants = []Variant{
	{Bits: 1, Output: "sha1_cavp.h", New: sha1.New},
	{Bits: 224, Output: "sha224_cavp.h", New: sha256.New224},
	{Bits: 256, Output: "sha256_cavp.h", New: sha256.New},
	{Bits: 384, Output: "sha384_cavp.h", New: sha512.New384},
	{Bits: 512, Output: "sha512_cavp.h", New: sha512.New},
}

// Name is the CAVP label, e.g. SHA256.
func (v Variant) Name() string {
	return fmt.Sprintf("SHA%d", v.Bits)
}

// Sources are the response files of the variant: short messages first,
// then long messages.
func (v Variant) Sources() []string {
	return []string{
		fmt.Sprintf("shabytetestvectors/SHA%dShortMsg.rsp", v.Bits),
		fmt.Sprintf("shabytetestvectors/SHA%dLongMsg.rsp", v.Bits),
	}
}

// Outputs lists every generated header in a stable order.
func Outputs() []string {
	out := []string{NSRLOutput}
	for _, v := range Variants {
		out = append(out, v.Output)
	}
	return out
}
