// Package digest exposes the single upward primitive consumed by the
// out-of-scope hypervisor backup collaborator: a streaming content digest
// used to skip re-copying files whose contents haven't changed. It is not
// a cryptographic signature, so SHA-1 is an acceptable, fast choice.
package digest

import (
	"crypto/sha1"
	"io"
	"os"
)

// chunkSize matches the streaming read size used by the collaborator this
// primitive was extracted from.
const chunkSize = 64 * 1024 * 1024

// Compute streams the file at path through SHA-1 in fixed-size chunks and
// returns the raw digest bytes.
func Compute(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha1.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
