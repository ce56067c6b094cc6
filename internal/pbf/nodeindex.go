package pbf

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

const (
	// Each entry holds lat and lon as fixed-point int32 (value * 1e7).
	entrySize = 8
	// Node IDs above this are not indexed.
	maxNodeID = 10_000_000_000
)

// NodeIndex is a memory-mapped node coordinate store. Coordinates live
// at offset nodeID * 8, giving O(1) lookup; the backing file is sparse,
// so disk usage tracks the number of nodes actually written.
type NodeIndex struct {
	file *os.File
	data mmap.MMap
	size int64
}

// CreateNodeIndex creates the index file at path, truncating any
// previous content.
func CreateNodeIndex(path string) (*NodeIndex, error) {
	return createNodeIndex(path, maxNodeID)
}

func createNodeIndex(path string, maxID int64) (*NodeIndex, error) {
	size := maxID * entrySize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create node index: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size node index: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map node index: %w", err)
	}

	return &NodeIndex{file: f, data: data, size: size}, nil
}

// Put stores a node's coordinates. Writes to distinct node IDs touch
// distinct offsets, so concurrent Puts are safe.
func (m *NodeIndex) Put(nodeID int64, lat, lon float64) {
	offset := nodeID * entrySize
	if nodeID < 0 || offset+entrySize > m.size {
		return
	}

	binary.LittleEndian.PutUint32(m.data[offset:], uint32(int32(lat*1e7)))
	binary.LittleEndian.PutUint32(m.data[offset+4:], uint32(int32(lon*1e7)))
}

// Get retrieves a node's coordinates. Returns ok=false for nodes that
// were never written. A node at exactly (0, 0) is indistinguishable
// from an absent one; nothing at Null Island is worth printing.
func (m *NodeIndex) Get(nodeID int64) (lat, lon float64, ok bool) {
	offset := nodeID * entrySize
	if nodeID < 0 || offset+entrySize > m.size {
		return 0, 0, false
	}

	latInt := int32(binary.LittleEndian.Uint32(m.data[offset:]))
	lonInt := int32(binary.LittleEndian.Uint32(m.data[offset+4:]))
	if latInt == 0 && lonInt == 0 {
		return 0, 0, false
	}

	return float64(latInt) / 1e7, float64(lonInt) / 1e7, true
}

// Flush forces written entries to disk.
func (m *NodeIndex) Flush() error {
	return m.data.Flush()
}

// Close unmaps and closes the index file.
func (m *NodeIndex) Close() error {
	if err := m.data.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}
