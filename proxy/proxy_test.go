package proxy

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/kasp-editor/kaspcore/arena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Invariant 6: motion extrapolation linearity.
func TestExtrapolateLinearMotion(t *testing.T) {
	f := NewForest(8, false)
	handle, ok := f.Alloc(Config{
		NsTime:         0,
		Parent:         Root,
		Position:       mgl32.Vec3{0, 0, 0},
		Rotation:       mgl32.QuatIdent(),
		LinearVelocity: mgl32.Vec3{1, 2, 3},
	})
	require.True(t, ok)

	f.Extrapolate(2e9) // 2 seconds later

	p := f.Address(handle)
	require.NotNil(t, p)
	want := mgl32.Vec3{2, 4, 6}
	got := p.SpecPosition
	assert.InDelta(t, want[0], got[0], 1e-4)
	assert.InDelta(t, want[1], got[1], 1e-4)
	assert.InDelta(t, want[2], got[2], 1e-4)
}

func TestExtrapolateStationaryCopiesPose(t *testing.T) {
	f := NewForest(8, false)
	pos := mgl32.Vec3{5, 6, 7}
	rot := mgl32.QuatIdent()
	handle, ok := f.Alloc(Config{Parent: Root, Position: pos, Rotation: rot})
	require.True(t, ok)

	f.Extrapolate(1e9)

	p := f.Address(handle)
	assert.Equal(t, pos, p.SpecPosition)
	assert.Equal(t, rot, p.SpecRotation)
}

func TestRelativeChildComposesWithParent(t *testing.T) {
	f := NewForest(8, false)
	parent, ok := f.Alloc(Config{Parent: Root, Position: mgl32.Vec3{10, 0, 0}, Rotation: mgl32.QuatIdent()})
	require.True(t, ok)
	child, ok := f.Alloc(Config{Parent: parent, Position: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.QuatIdent()})
	require.True(t, ok)

	cp := f.Address(child)
	assert.True(t, cp.Flags&FlagRelative != 0)

	f.Extrapolate(0)

	got := f.Address(child).SpecPosition
	assert.InDelta(t, float32(11), got[0], 1e-4)
}

// TestRelativeChildWithRotatedParentIsPlainAdd pins the RELATIVE
// composition formula against a non-identity parent orientation:
// spec_pos is a plain vec3 add (never rotated by the parent's
// orientation) and spec_rot composes child-on-the-left
// (child * parent), matching r_proxy3d.c's vec3_translate +
// quat_mult(dst, tmp, parent).
func TestRelativeChildWithRotatedParentIsPlainAdd(t *testing.T) {
	f := NewForest(8, false)
	parentRot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	parent, ok := f.Alloc(Config{Parent: Root, Position: mgl32.Vec3{10, 0, 0}, Rotation: parentRot})
	require.True(t, ok)

	childRot := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1})
	child, ok := f.Alloc(Config{Parent: parent, Position: mgl32.Vec3{1, 0, 0}, Rotation: childRot})
	require.True(t, ok)

	f.Extrapolate(0)

	gotPos := f.Address(child).SpecPosition
	wantPos := mgl32.Vec3{1, 0, 0}.Add(mgl32.Vec3{10, 0, 0})
	assert.InDelta(t, wantPos[0], gotPos[0], 1e-4)
	assert.InDelta(t, wantPos[1], gotPos[1], 1e-4)
	assert.InDelta(t, wantPos[2], gotPos[2], 1e-4)

	gotRot := f.Address(child).SpecRotation
	wantRot := childRot.Mul(parentRot)
	assert.InDelta(t, wantRot.W, gotRot.W, 1e-4)
	assert.InDelta(t, wantRot.V[0], gotRot.V[0], 1e-4)
	assert.InDelta(t, wantRot.V[1], gotRot.V[1], 1e-4)
	assert.InDelta(t, wantRot.V[2], gotRot.V[2], 1e-4)
}

func TestSetLinearSpeculationTogglesMovingFlag(t *testing.T) {
	f := NewForest(8, false)
	handle, _ := f.Alloc(Config{Parent: Root})
	p := f.Address(handle)
	assert.False(t, p.Flags&FlagMoving != 0)

	f.SetLinearSpeculation(handle, mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 0)
	assert.True(t, f.Address(handle).Flags&FlagMoving != 0)

	f.SetLinearSpeculation(handle, mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{}, mgl32.Vec3{}, 0)
	assert.False(t, f.Address(handle).Flags&FlagMoving != 0)
}

func TestDeallocRemovesSubtree(t *testing.T) {
	f := NewForest(8, false)
	parent, _ := f.Alloc(Config{Parent: Root})
	child, _ := f.Alloc(Config{Parent: parent})

	f.Dealloc(parent, arena.New(4096))
	assert.Nil(t, f.Address(parent))
	assert.Nil(t, f.Address(child))
}

func TestDeallocFallsBackToHeapOnArenaExhaustion(t *testing.T) {
	f := NewForest(8, false)
	parent, _ := f.Alloc(Config{Parent: Root})
	f.Alloc(Config{Parent: parent})
	f.Alloc(Config{Parent: parent})

	f.Dealloc(parent, arena.New(0))
	assert.True(t, f.ForcedMalloc)
}
