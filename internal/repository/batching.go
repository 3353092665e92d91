package repository

import (
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// Chunk splits ops into ordered chunks of at most maxSize operations in which
// no key appears twice. Concatenating the chunks reproduces ops.
//
// A repeated key closes the current buffer, so operations on the same key
// always land in different chunks in their original order.
func Chunk(ops []storage.Operation, maxSize int) [][]storage.Operation {
	if maxSize <= 0 {
		maxSize = storage.MaxTransactionItems
	}

	var chunks [][]storage.Operation
	var buffer []storage.Operation
	seen := make(map[storage.Key]struct{})

	flush := func() {
		for start := 0; start < len(buffer); start += maxSize {
			end := min(start+maxSize, len(buffer))
			chunks = append(chunks, buffer[start:end:end])
		}
		buffer = nil
		clear(seen)
	}

	for _, op := range ops {
		if _, dup := seen[op.Key]; dup {
			flush()
		}
		seen[op.Key] = struct{}{}
		buffer = append(buffer, op)
	}
	flush()
	return chunks
}
