package archive

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3-256 hash of an entry payload.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short is the first 12 hex characters, enough to tell entries apart in a
// report.
func (d Digest) Short() string { return d.String()[:12] }

func Sum(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// Comparison lists how the entries of two archives relate, by path.
type Comparison struct {
	Unchanged []string
	Changed   []string
	Added     []string
	Removed   []string
}

// SamePaths reports whether both archives hold exactly the same paths.
func (c Comparison) SamePaths() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Compare diffs after against before. Unchanged, Changed and Removed follow
// before's order; Added follows after's order.
func Compare(before, after *Archive) Comparison {
	var cmp Comparison
	for _, e := range before.entries {
		other, ok := after.Lookup(e.Path)
		switch {
		case !ok:
			cmp.Removed = append(cmp.Removed, e.Path)
		case e.Dir == other.Dir && Sum(e.Data) == Sum(other.Data):
			cmp.Unchanged = append(cmp.Unchanged, e.Path)
		default:
			cmp.Changed = append(cmp.Changed, e.Path)
		}
	}
	for _, e := range after.entries {
		if _, ok := before.index[e.Path]; !ok {
			cmp.Added = append(cmp.Added, e.Path)
		}
	}
	return cmp
}
