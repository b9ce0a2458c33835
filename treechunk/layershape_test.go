package treechunk

import "testing"

func TestBuildLayerShapesLayerZeroCoversWholeChunk(t *testing.T) {
	shapes := BuildLayerShapes(12, 3)
	if len(shapes) != 3 {
		t.Fatalf("got %d shapes, want 3", len(shapes))
	}
	if chunkCover := (shapes[0].Mask + 1) * shapes[0].EntryCoverSize(); chunkCover != 1<<12 {
		t.Fatalf("layer 0 chunk cover size = %d, want %d", chunkCover, uint64(1<<12))
	}
	if shapes[0].EntrySize != 1 {
		t.Fatalf("layer 0 entry size = %d, want 1", shapes[0].EntrySize)
	}
}

func TestBuildLayerShapesUpperLayersCoverExponentiallyMore(t *testing.T) {
	shapes := BuildLayerShapes(12, 4)
	for i := 1; i < len(shapes); i++ {
		if shapes[i].EntryCoverSize() <= shapes[i-1].EntryCoverSize() {
			t.Fatalf("layer %d cover size %d did not grow past layer %d's %d",
				i, shapes[i].EntryCoverSize(), i-1, shapes[i-1].EntryCoverSize())
		}
		if shapes[i].EntrySize != HashSize {
			t.Fatalf("layer %d entry size = %d, want %d", i, shapes[i].EntrySize, HashSize)
		}
	}
}

func TestEntryOffsetStaysWithinChunk(t *testing.T) {
	shapes := BuildLayerShapes(12, 3)
	chunkSize := uint64(1) << 12
	for _, off := range []uint64{0, 1, 4095, 4096, 1 << 20, 1 << 30} {
		for _, s := range shapes {
			pos := s.EntryOffset(off)
			if uint64(pos)+uint64(s.EntrySize) > chunkSize {
				t.Fatalf("entry at offset %d overruns chunk: pos=%d entrySize=%d chunkSize=%d", off, pos, s.EntrySize, chunkSize)
			}
		}
	}
}
