package engine

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// dedup remembers, per needle, the match offsets observed in the tail of the
// previous chunk that the next chunk repeats as carry.
type dedup struct {
	prev []*roaring64.Bitmap
	cur  []*roaring64.Bitmap
}

func newDedup(needles int) *dedup {
	return &dedup{
		prev: make([]*roaring64.Bitmap, needles),
		cur:  make([]*roaring64.Bitmap, needles),
	}
}

// rotate starts a new chunk: the tail of the finished chunk becomes the
// lookup set and the recording set is emptied.
func (d *dedup) rotate() {
	d.prev, d.cur = d.cur, d.prev
	for _, b := range d.cur {
		if b != nil {
			b.Clear()
		}
	}
}

func (d *dedup) seen(id int, off uint64) bool {
	b := d.prev[id]
	return b != nil && b.Contains(off)
}

func (d *dedup) remember(id int, off uint64) {
	b := d.cur[id]
	if b == nil {
		b = roaring64.New()
		d.cur[id] = b
	}
	b.Add(off)
}

func (d *dedup) reset() {
	for i := range d.prev {
		d.prev[i], d.cur[i] = nil, nil
	}
}
