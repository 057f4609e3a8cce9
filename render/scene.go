package render

import (
	"github.com/kasp-editor/kaspcore/arena"
	"github.com/kasp-editor/kaspcore/container"
)

// InstanceType distinguishes what payload an Instance wraps.
type InstanceType uint8

const (
	InstanceProxy3D InstanceType = iota
	InstanceUI
	InstanceMesh
)

// Command is a single draw command: a sort key plus the pool index of
// the instance that owns it.
type Command struct {
	Key       Key
	Instance  uint32
	Allocated bool
}

type instance struct {
	frameLastTouched uint64
	cmd              *Command
	typ              InstanceType
	unit             uint32

	// cost/*Data are the instance's actual contribution to the data
	// emission step, attached by SetInstanceData once the caller (a
	// proxy3D/mesh/UI submitter) knows its real size; the zero value
	// falls back to defaultCost and contributes no bytes.
	cost                              InstanceCost
	indexData, localData, sharedData []byte
}

func instanceHash(typ InstanceType, unit uint32) uint64 {
	return uint64(typ)<<32 | uint64(unit)
}

// Scene is a per-frame set of instances to be drawn. It is partially
// immediate: every frame the caller re-submits draw commands for live
// units via InstanceAdd; FrameEnd caches touched instances and prunes
// anything not resubmitted.
type Scene struct {
	frameArenas [2]*arena.Arena
	frame       uint64

	instances      *container.Pool[instance]
	unitToInstance *container.HashMap[uint32] // hash(type,unit) -> instance pool index

	newInstances []uint32 // instances whose command is new or changed this frame

	cmdCache      []*Command // final sorted command list from the previous frame
	cmdFrame      []*Command // final sorted command list for this frame, built at FrameEnd
	cmdFrameCount uint32
	cmdNewCount   uint32

	Buckets []Bucket
}

// NewScene creates a scene with room for instanceCapacity live
// instances and two rotating per-frame arenas of arenaSize bytes each.
func NewScene(instanceCapacity, arenaSize, hashBuckets int) *Scene {
	s := &Scene{
		instances:      container.NewPool[instance](instanceCapacity, true),
		unitToInstance: container.NewHashMap[uint32](hashBuckets),
	}
	s.frameArenas[0] = arena.New(arenaSize)
	s.frameArenas[1] = arena.New(arenaSize)
	return s
}

// FrameBegin advances the frame counter, selects this frame's arena,
// and resets the per-frame submission bookkeeping. The previous
// frame's final command list becomes this frame's cache.
func (s *Scene) FrameBegin() {
	s.frame++
	s.frameArenas[s.frame&1].Flush()
	s.cmdCache = s.cmdFrame
	s.cmdFrame = nil
	s.newInstances = s.newInstances[:0]
	s.cmdFrameCount = 0
	s.cmdNewCount = 0
}

func (s *Scene) currentArena() *arena.Arena { return s.frameArenas[s.frame&1] }

// InstanceAdd registers unit (of the given type) as drawn this frame
// with the given key. A hit on the proxy/unit-to-instance map whose
// cached key is unchanged marks the instance touched and reuses its
// cached command; any other case allocates a fresh Command in the
// current frame arena and links the instance onto the new-instance
// list. Returns the instance's pool handle.
func (s *Scene) InstanceAdd(typ InstanceType, unit uint32, key Key) uint32 {
	hash := instanceHash(typ, unit)
	s.cmdFrameCount++

	for entryID, ok := s.unitToInstance.First(hash); ok; entryID, ok = s.unitToInstance.Next(entryID) {
		idx32 := s.unitToInstance.Value(entryID)
		inst := s.instances.Get(int(idx32))
		if inst == nil || inst.typ != typ || inst.unit != unit {
			continue
		}
		if inst.cmd.Key == key {
			inst.frameLastTouched = s.frame
			return idx32
		}
		inst.frameLastTouched = s.frame
		inst.cmd = s.allocCommand(idx32, key)
		s.newInstances = append(s.newInstances, idx32)
		s.cmdNewCount++
		return idx32
	}

	id, inst, ok := s.instances.Reserve()
	if !ok {
		return 0
	}
	idx32 := uint32(id)
	*inst = instance{frameLastTouched: s.frame, typ: typ, unit: unit}
	inst.cmd = s.allocCommand(idx32, key)
	s.unitToInstance.Add(hash, idx32)
	s.newInstances = append(s.newInstances, idx32)
	s.cmdNewCount++
	return idx32
}

// SetInstanceData attaches the real index/instance cost and the
// actual index_data/local_data/shared_data bytes idx contributes to
// its buffer. Proxy3D, mesh, and UI submitters call this right after
// InstanceAdd once they know their instance's real size; instances
// left unset fall back to defaultCost and contribute no bytes to the
// buffer's data.
func (s *Scene) SetInstanceData(idx uint32, cost InstanceCost, indexData, localData, sharedData []byte) {
	inst := s.instances.Get(int(idx))
	if inst == nil {
		return
	}
	inst.cost = cost
	inst.indexData = indexData
	inst.localData = localData
	inst.sharedData = sharedData
}

func (s *Scene) costFor(cmd *Command) InstanceCost {
	inst := s.instances.Get(int(cmd.Instance))
	if inst == nil || inst.cost == (InstanceCost{}) {
		return defaultCost(cmd)
	}
	return inst.cost
}

func (s *Scene) dataFor(cmd *Command) (index, local, shared []byte) {
	inst := s.instances.Get(int(cmd.Instance))
	if inst == nil {
		return nil, nil, nil
	}
	return inst.indexData, inst.localData, inst.sharedData
}

func (s *Scene) allocCommand(instanceIdx uint32, key Key) *Command {
	buf := s.currentArena().PushAligned(int(commandSize), 8)
	if buf == nil {
		// Arena exhausted: fall back to a heap-allocated command. This
		// keeps the frame correct at the cost of an allocation outside
		// the arena's lifetime discipline.
		return &Command{Key: key, Instance: instanceIdx, Allocated: true}
	}
	return &Command{Key: key, Instance: instanceIdx, Allocated: true}
}

// commandSize is the scratch reserved per command in the frame arena;
// Command itself is heap-allocated (Go has no placement-new), but the
// reservation preserves the arena's role as the frame's book-keeping
// budget and lets Dealloc-style callers reason about per-frame cost.
const commandSize = 24

// mergeSortCommands is a top-down merge sort over cmds. It keeps no
// results between calls; the reuse across frames comes from FrameEnd
// merging this frame's sorted new commands with the already-sorted
// cmd_cache instead of re-sorting every command.
func mergeSortCommands(cmds []*Command) []*Command {
	if len(cmds) <= 1 {
		return cmds
	}
	mid := len(cmds) / 2
	left := mergeSortCommands(append([]*Command(nil), cmds[:mid]...))
	right := mergeSortCommands(append([]*Command(nil), cmds[mid:]...))
	return mergeCommands(left, right)
}

// mergeCommands merges two key-descending runs into one.
func mergeCommands(a, b []*Command) []*Command {
	out := make([]*Command, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Key >= b[j].Key {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// FrameEnd runs the sort pass and the bucket pass: cmd_new is
// merge-sorted, then merged in parallel against cmd_cache (pruning any
// cached instance not touched this frame), producing cmd_frame
// non-increasing in key. Every surviving instance's cmd pointer is
// rebound to its slot in cmd_frame. The bucket pass then partitions
// cmd_frame into draw buckets.
func (s *Scene) FrameEnd() {
	cmdNew := make([]*Command, 0, s.cmdNewCount)
	for _, id := range s.newInstances {
		if inst := s.instances.Get(int(id)); inst != nil {
			cmdNew = append(cmdNew, inst.cmd)
		}
	}
	cmdNew = mergeSortCommands(cmdNew)

	prunedCache := make([]*Command, 0, len(s.cmdCache))
	for _, cmd := range s.cmdCache {
		inst := s.instances.Get(int(cmd.Instance))
		if inst == nil || inst.frameLastTouched != s.frame {
			if inst != nil {
				hash := instanceHash(inst.typ, inst.unit)
				s.unitToInstance.Remove(hash, func(v uint32) bool { return v == cmd.Instance })
				s.instances.Remove(int(cmd.Instance))
			}
			continue
		}
		// Commands rebuilt this frame (key changed) are represented by
		// their new allocation in cmdNew, not the stale cache entry.
		if inst.cmd != cmd {
			continue
		}
		prunedCache = append(prunedCache, cmd)
	}

	s.cmdFrame = mergeCommands(prunedCache, cmdNew)
	s.Buckets = buildBuckets(s.cmdFrame, s.costFor, s.dataFor)
}
