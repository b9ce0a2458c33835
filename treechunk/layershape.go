package treechunk

import "math/bits"

// maxLayers is the number of layer slots the writer allocates up
// front. Only as many as are actually needed survive past wrap-up,
// but the shape table is built for the full count so that the
// top-layer shift invariant (> 64) can be checked once at construction.
const maxLayers = 16

// LayerShape describes how a logical byte offset maps to an entry
// within a single chunk at one layer of the tree: the entry occupying
// offset x starts at byte ((x >> Shift) & Mask) * EntrySize within the
// chunk.
type LayerShape struct {
	Shift     uint
	Mask      uint64
	EntrySize int
}

// EntryCoverSize is the number of logical bytes a single entry at
// this layer addresses.
func (s LayerShape) EntryCoverSize() uint64 {
	return uint64(1) << s.Shift
}

// EntryOffset returns the byte offset, within a layer chunk, of the
// entry responsible for the given logical offset.
func (s LayerShape) EntryOffset(offset uint64) int {
	return int(((offset >> s.Shift) & s.Mask) * uint64(s.EntrySize))
}

// BuildLayerShapes derives the per-layer addressing geometry for a
// chunk payload size of 2^size2 bytes and numLayers tree levels.
// Layer 0 covers raw data bytes one-for-one; layers 1..numLayers-1
// hold fixed-width 32-byte hash entries, each covering an
// exponentially larger span of the logical stream.
func BuildLayerShapes(size2 uint, numLayers int) []LayerShape {
	chunkSize := uint64(1) << size2
	upperEntrySize := HashSize
	upperChunkEntries := chunkSize / uint64(upperEntrySize)
	upperChunkNumBits := uint(bits.OnesCount64(upperChunkEntries - 1))

	shapes := make([]LayerShape, 0, numLayers)
	shapes = append(shapes, LayerShape{Shift: 0, Mask: chunkSize - 1, EntrySize: 1})

	bitStart := size2
	for layer := 1; layer < numLayers; layer++ {
		shapes = append(shapes, LayerShape{
			Shift:     bitStart,
			Mask:      upperChunkEntries - 1,
			EntrySize: upperEntrySize,
		})
		bitStart += upperChunkNumBits
	}
	return shapes
}
