package imageio

import (
	"encoding/hex"

	"github.com/opd-ai/djv/pixel"
	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 digest of an image's shape and pixel
// data. Images with equal Info and Data share a digest.
func Digest(img *pixel.Image) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(img.Info.String()))
	h.Write([]byte{0})
	h.Write(img.Data)
	return hex.EncodeToString(h.Sum(nil))
}
