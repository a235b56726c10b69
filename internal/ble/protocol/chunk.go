// Package protocol holds the link-layer framing rules for printer writes.
package protocol

// DefaultChunkSize is the largest payload written per GATT operation. It stays
// under the 23-byte default ATT MTU (3 bytes of header), so it is safe before
// any MTU exchange has happened.
const DefaultChunkSize = 20

// ChunkBytes splits data into consecutive slices of at most size bytes. The
// slices alias data; callers must not modify data while the chunks are in use.
// Returns nil for empty data or a non-positive size.
func ChunkBytes(data []byte, size int) [][]byte {
	if len(data) == 0 || size <= 0 {
		return nil
	}

	chunks := make([][]byte, 0, ChunkCount(len(data), size))
	for len(data) > 0 {
		n := size
		if len(data) < n {
			n = len(data)
		}
		// Cap the capacity so an append on one chunk can't clobber the next.
		chunks = append(chunks, data[:n:n])
		data = data[n:]
	}
	return chunks
}

// ChunkCount returns ceil(n/size), the number of writes needed for n bytes.
func ChunkCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
