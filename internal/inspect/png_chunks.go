package inspect

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// pngAncillary lists the ancillary chunks in a PNG stream that a decode and
// re-encode cycle does not carry over, in stream order without repeats.
func pngAncillary(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("invalid PNG signature")
	}

	var found []string
	seen := map[string]bool{}
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF {
				return found, nil
			}
			return found, err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		typeBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, typeBuf); err != nil {
			return found, err
		}
		chunkName := string(typeBuf)

		if droppedOnReencode(chunkName) && !seen[chunkName] {
			seen[chunkName] = true
			found = append(found, chunkName)
		}

		if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
			return found, err
		}
		if chunkName == "IEND" {
			return found, nil
		}
	}
}

func droppedOnReencode(chunkName string) bool {
	switch chunkName {
	case "tEXt", "zTXt", "iTXt", "eXIf", "tIME", "iCCP", "gAMA", "cHRM", "sRGB", "pHYs":
		return true
	default:
		return false
	}
}
