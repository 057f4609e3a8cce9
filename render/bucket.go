package render

// Default per-buffer limits. A new buffer starts within the same
// bucket when the accumulated index count would overflow a u32 index
// or the shared instance count would exceed the draw call's instance
// limit, matching the bucket pass's buffer-splitting rule.
const (
	MaxIndexCount    = 1<<32 - 1
	MaxInstanceCount = 1 << 16
)

// InstanceCost reports how much space (in indices and shared-stride
// instances) a single draw command of the given type contributes to
// its buffer. Per-instance-type callers (proxies, UI buckets, raw
// meshes) supply this; Scene does not know mesh vertex/index counts on
// its own, so the caller funds the actual numbers.
type InstanceCost struct {
	IndexCount    uint32
	InstanceCount uint32
}

// Buffer is one contiguous upload unit within a Bucket: a contiguous
// run of commands whose combined index/instance cost fits the limits,
// plus the actual bytes the data emission step packs for it —
// index_data, local_data, and shared_data in the original's terms.
type Buffer struct {
	CmdLow, CmdHigh uint32 // inclusive index range into the owning Bucket's Commands
	IndexCount      uint32
	InstanceCount   uint32

	IndexData  []byte
	LocalData  []byte
	SharedData []byte
}

// Bucket groups adjacent commands sharing the fields that determine
// how they are drawn: a single GL program/state change covers an
// entire bucket; buffers subdivide it further to respect size limits.
type Bucket struct {
	ScreenLayer  uint64
	Transparency uint64
	Material     uint64
	Primitive    uint64
	Instanced    uint64

	Commands []*Command
	Buffers  []Buffer
}

func bucketKey(k Key) (screenLayer, transparency, material, primitive, instanced uint64) {
	return k.ScreenLayer(), k.Transparency(), k.Material(), k.Primitive(), k.Instanced()
}

// buildBuckets partitions cmdFrame (already sorted non-increasing by
// key) into buckets, starting a new bucket whenever material,
// screen_layer, transparency, primitive, or instanced changes. cost
// reports each command's real index/instance contribution (Scene.
// FrameEnd supplies one backed by the owning instance's registered
// data; a bare defaultCost is used by tests exercising the bucket pass
// in isolation). dataFor, when non-nil, supplies each command's actual
// index_data/local_data/shared_data bytes for the data emission step;
// omitting it (nil) skips emission and leaves buffers byte-empty.
func buildBuckets(cmds []*Command, cost func(*Command) InstanceCost, dataFor func(*Command) (index, local, shared []byte)) []Bucket {
	var buckets []Bucket
	var cur *Bucket

	for _, cmd := range cmds {
		sl, tr, mat, prim, inst := bucketKey(cmd.Key)
		if cur == nil || cur.ScreenLayer != sl || cur.Transparency != tr || cur.Material != mat || cur.Primitive != prim || cur.Instanced != inst {
			buckets = append(buckets, Bucket{ScreenLayer: sl, Transparency: tr, Material: mat, Primitive: prim, Instanced: inst})
			cur = &buckets[len(buckets)-1]
		}
		cur.Commands = append(cur.Commands, cmd)
	}

	for i := range buckets {
		buckets[i].Buffers = splitBuffers(buckets[i].Commands, cost)
		if dataFor != nil {
			emitBufferData(buckets[i].Commands, buckets[i].Buffers, dataFor)
		}
	}
	return buckets
}

// defaultCost assigns every command a single shared-record instance
// and a fixed 6-index quad. It is the fallback for instances with no
// registered InstanceCost, and the cost function used by callers
// exercising the bucket pass without a Scene.
func defaultCost(*Command) InstanceCost {
	return InstanceCost{IndexCount: 6, InstanceCount: 1}
}

// emitBufferData is the data emission step (spec component E's step
// 3): for every buffer, it concatenates each covered command's bytes,
// read back from dataFor, into that buffer's IndexData/LocalData/
// SharedData.
func emitBufferData(cmds []*Command, buffers []Buffer, dataFor func(*Command) (index, local, shared []byte)) {
	for i := range buffers {
		b := &buffers[i]
		for ci := b.CmdLow; ci <= b.CmdHigh; ci++ {
			index, local, shared := dataFor(cmds[ci])
			b.IndexData = append(b.IndexData, index...)
			b.LocalData = append(b.LocalData, local...)
			b.SharedData = append(b.SharedData, shared...)
		}
	}
}

func splitBuffers(cmds []*Command, cost func(*Command) InstanceCost) []Buffer {
	if len(cmds) == 0 {
		return nil
	}
	var buffers []Buffer
	var cur Buffer
	cur.CmdLow = 0
	started := false

	flush := func(hi uint32) {
		cur.CmdHigh = hi
		buffers = append(buffers, cur)
	}

	for i, cmd := range cmds {
		c := cost(cmd)
		if started && (uint64(cur.IndexCount)+uint64(c.IndexCount) > MaxIndexCount || uint64(cur.InstanceCount)+uint64(c.InstanceCount) > MaxInstanceCount) {
			flush(uint32(i - 1))
			cur = Buffer{CmdLow: uint32(i)}
		}
		cur.IndexCount += c.IndexCount
		cur.InstanceCount += c.InstanceCount
		started = true
	}
	flush(uint32(len(cmds) - 1))
	return buffers
}
