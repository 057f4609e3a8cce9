package ui

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/kasp-editor/kaspcore/render"
)

// UI draw layers. Buckets are emitted in descending key order, so at
// one depth the plain-visual layer comes first, then interactable
// chrome, then the text selection highlight, and text last, on top.
const (
	LayerText          uint64 = 0
	LayerTextSelection uint64 = 1
	LayerInter         uint64 = 2
	LayerVisual        uint64 = 3
)

const (
	cmdTextureBits = 14
	cmdLayerBits   = 2
	cmdDepthBits   = 32 - cmdTextureBits - cmdLayerBits

	cmdTextureLowBit = 0
	cmdLayerLowBit   = cmdTextureLowBit + cmdTextureBits
	cmdDepthLowBit   = cmdLayerLowBit + cmdLayerBits
)

func cmdMask(bits, low uint) uint32 { return ((uint32(1) << bits) - 1) << low }

var (
	cmdTextureMask = cmdMask(cmdTextureBits, cmdTextureLowBit)
	cmdLayerMask   = cmdMask(cmdLayerBits, cmdLayerLowBit)
	cmdDepthMask   = cmdMask(cmdDepthBits, cmdDepthLowBit)
)

// PackCmdKey builds the 32-bit UI draw-bucket key: larger depth draws
// first, matching UI_DRAW_COMMAND.
func PackCmdKey(depth, layer, texture uint32) uint32 {
	var k uint32
	k |= (depth << cmdDepthLowBit) & cmdDepthMask
	k |= (layer << cmdLayerLowBit) & cmdLayerMask
	k |= (texture << cmdTextureLowBit) & cmdTextureMask
	return k
}

// DrawNode is one entry in a DrawBucket: the node (or, for the
// text-selection layer, the selection rect) it points to.
type DrawNode struct {
	NodeIndex uint32
}

// DrawBucket groups every touched node sharing a (depth, layer,
// texture) key so the platform adapter can issue one draw call per
// bucket.
type DrawBucket struct {
	CmdKey uint32
	Nodes  []DrawNode
}

// emitBuckets walks every touched node this frame and assigns it to
// its (depth, layer, texture) bucket; buckets are emitted in
// descending key order (larger depth first).
func (f *Frame) emitBuckets() {
	byKey := make(map[uint32]*DrawBucket)
	var order []uint32

	push := func(depth uint32, layer uint64, texture uint32, idx uint32) {
		key := PackCmdKey(depth, uint32(layer), texture)
		b, ok := byKey[key]
		if !ok {
			b = &DrawBucket{CmdKey: key}
			byKey[key] = b
			order = append(order, key)
		}
		b.Nodes = append(b.Nodes, DrawNode{NodeIndex: idx})
	}

	f.Walk(Root, func(idx uint32, n *Node) {
		if n.touchedFrame != f.frame {
			return
		}
		depth := uint32(n.depth)
		texture := spriteOf(n)
		if n.Flags&DrawText != 0 {
			push(depth, LayerText, texture, idx)
		}
		if n.Flags&DrawBorder != 0 || n.Flags&DrawBackground != 0 {
			layer := LayerVisual
			if n.Flags&InterFlags != 0 {
				layer = LayerInter
			}
			push(depth, layer, 0, idx)
		}
	})

	sort.Slice(order, func(i, j int) bool { return order[i] > order[j] })
	f.Buckets = f.Buckets[:0]
	for _, key := range order {
		f.Buckets = append(f.Buckets, *byKey[key])
	}
}

func spriteOf(n *Node) uint32 { return n.SpriteID }

// UIShareStride is the packed per-instance shared-vertex byte stride:
// node_rect, visible_rect, uv_rect, background_color, border_color,
// sprite_color (vec4 each), extra (vec3: border_size, corner_radius,
// edge_softness), and four gradient corner colors (vec4 each) — ten
// vec4s plus one vec3, little-endian float32, 4-byte aligned.
const UIShareStride = 4*4*10 + 4*3

// uiIndexCost is the fixed index count of one UI node's quad.
const uiIndexCost = 6

// packUIShareRecord packs one node's shared-vertex record in the
// UIShareStride layout. Fields the node tree does not yet model (the
// sprite UV rect, gradient corners, border size, corner radius, edge
// softness) are left zero.
func packUIShareRecord(n *Node) []byte {
	buf := make([]byte, UIShareStride)
	off := 0
	putFloat := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	putVec4 := func(v [4]float32) {
		putFloat(v[0])
		putFloat(v[1])
		putFloat(v[2])
		putFloat(v[3])
	}
	visLow, visHigh := n.PixelVisible()

	putVec4([4]float32{n.PixelPos[AxisX], n.PixelPos[AxisY], n.PixelSize[AxisX], n.PixelSize[AxisY]}) // node_rect
	putVec4([4]float32{visLow[0], visLow[1], visHigh[0], visHigh[1]})                                  // visible_rect
	putVec4([4]float32{})                                                                               // uv_rect
	putVec4(n.BackgroundColor)
	putVec4(n.BorderColor)
	putVec4(n.BackgroundColor) // sprite_color: no separate tint tracked yet
	putFloat(0)                // extra.border_size
	putFloat(0)                // extra.corner_radius
	putFloat(0)                // extra.edge_softness
	putVec4([4]float32{})      // gradient_br
	putVec4([4]float32{})      // gradient_tr
	putVec4([4]float32{})      // gradient_tl
	putVec4([4]float32{})      // gradient_bl

	return buf
}

// EmitToScene registers every draw bucket's nodes as UI instances on
// scene, building each command's render.Key from the bucket's packed
// (depth, layer, texture) value reinterpreted into the 64-bit key's
// depth/material fields under the given screen layer and
// transparency. Each instance's shared_data is the node's packed
// UIShareStride record, so the data emission step has real bytes to
// write instead of a bare count.
func (f *Frame) EmitToScene(scene *render.Scene, screenLayer, transparency uint64) {
	for bi, bucket := range f.Buckets {
		depth := (uint64(bucket.CmdKey) & uint64(cmdDepthMask)) >> cmdDepthLowBit
		texture := (uint64(bucket.CmdKey) & uint64(cmdTextureMask)) >> cmdTextureLowBit
		material := render.NewMaterial(0, 0, texture)
		key := render.NewKey(screenLayer, transparency, depth, material, render.PrimitiveTriangle, render.Instanced, render.DrawElements)
		for ni, dn := range bucket.Nodes {
			unit := uint32(bi)<<16 | uint32(ni)
			idx := scene.InstanceAdd(render.InstanceUI, unit, key)
			n := f.Node(dn.NodeIndex)
			if n == nil {
				continue
			}
			cost := render.InstanceCost{IndexCount: uiIndexCost, InstanceCount: 1}
			scene.SetInstanceData(idx, cost, nil, nil, packUIShareRecord(n))
		}
	}
}
