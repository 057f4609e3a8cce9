package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(screenLayer, depth uint64) Key {
	return NewKey(screenLayer, TransparencyOpaque, depth, 0, PrimitiveTriangle, NonInstanced, DrawElements)
}

// S1 — Scene sort.
func TestSceneSortOrder(t *testing.T) {
	s := NewScene(16, 4096, 4)
	s.FrameBegin()
	a := s.InstanceAdd(InstanceMesh, 1, key(1, 10))
	b := s.InstanceAdd(InstanceMesh, 2, key(1, 20))
	c := s.InstanceAdd(InstanceMesh, 3, key(0, 50))
	s.FrameEnd()

	require.Len(t, s.cmdFrame, 3)
	assert.Equal(t, b, s.cmdFrame[0].Instance)
	assert.Equal(t, a, s.cmdFrame[1].Instance)
	assert.Equal(t, c, s.cmdFrame[2].Instance)

	// Invariant 4: non-increasing key order.
	for i := 0; i+1 < len(s.cmdFrame); i++ {
		assert.GreaterOrEqual(t, s.cmdFrame[i].Key, s.cmdFrame[i+1].Key)
	}
	// Invariant 5: bijection between commands and owning instances.
	for _, cmd := range s.cmdFrame {
		inst := s.instances.Get(int(cmd.Instance))
		require.NotNil(t, inst)
		assert.Same(t, cmd, inst.cmd)
	}
}

// S2 — Scene caching.
func TestSceneCachingPrunesUntouchedInstance(t *testing.T) {
	s := NewScene(16, 4096, 4)
	k1 := key(1, 10)
	k2 := key(1, 20)

	s.FrameBegin()
	a := s.InstanceAdd(InstanceMesh, 1, k1)
	b := s.InstanceAdd(InstanceMesh, 2, k2)
	s.FrameEnd()
	require.Equal(t, uint32(2), s.cmdFrameCount)

	s.FrameBegin()
	a2 := s.InstanceAdd(InstanceMesh, 1, k1) // unchanged key, resubmitted
	s.FrameEnd()

	assert.Equal(t, uint32(1), s.cmdFrameCount)
	require.Len(t, s.cmdFrame, 1)
	assert.Equal(t, a, a2)
	assert.Equal(t, a, s.cmdFrame[0].Instance)

	assert.Nil(t, s.instances.Get(int(b)), "untouched instance B must be pruned")
	_, ok := s.unitToInstance.First(instanceHash(InstanceMesh, 2))
	assert.False(t, ok, "proxy_to_instance map must no longer contain B")
}

func TestSceneInstanceKeyChangeReallocatesCommand(t *testing.T) {
	s := NewScene(16, 4096, 4)
	s.FrameBegin()
	a := s.InstanceAdd(InstanceMesh, 1, key(1, 10))
	s.FrameEnd()
	firstCmd := s.instances.Get(int(a)).cmd

	s.FrameBegin()
	s.InstanceAdd(InstanceMesh, 1, key(1, 99))
	s.FrameEnd()

	require.Len(t, s.cmdFrame, 1)
	assert.NotSame(t, firstCmd, s.cmdFrame[0])
	assert.Equal(t, key(1, 99), s.cmdFrame[0].Key)
}

func TestBuildBucketsGroupsByMaterialAndLayer(t *testing.T) {
	cmds := []*Command{
		{Key: NewKey(1, TransparencyOpaque, 10, 5, 0, 0, 0), Instance: 1},
		{Key: NewKey(1, TransparencyOpaque, 9, 5, 0, 0, 0), Instance: 2},
		{Key: NewKey(1, TransparencyOpaque, 8, 6, 0, 0, 0), Instance: 3},
		{Key: NewKey(0, TransparencyOpaque, 7, 6, 0, 0, 0), Instance: 4},
	}
	buckets := buildBuckets(cmds, defaultCost, nil)
	require.Len(t, buckets, 3)
	assert.Len(t, buckets[0].Commands, 2)
	assert.Len(t, buckets[1].Commands, 1)
	assert.Len(t, buckets[2].Commands, 1)
}

// Data emission (component E step 3): registered per-instance bytes
// must actually land in the owning buffer's SharedData, not be
// dropped in favor of defaultCost's bare counts.
func TestSceneFrameEndEmitsRegisteredInstanceData(t *testing.T) {
	s := NewScene(16, 4096, 4)
	s.FrameBegin()
	a := s.InstanceAdd(InstanceMesh, 1, key(1, 10))
	s.SetInstanceData(a, InstanceCost{IndexCount: 12, InstanceCount: 1}, []byte{1, 2, 3, 4}, nil, []byte{9, 9, 9, 9})
	s.FrameEnd()

	require.Len(t, s.Buckets, 1)
	require.Len(t, s.Buckets[0].Buffers, 1)
	buf := s.Buckets[0].Buffers[0]
	assert.Equal(t, uint32(12), buf.IndexCount)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.IndexData)
	assert.Equal(t, []byte{9, 9, 9, 9}, buf.SharedData)
}
