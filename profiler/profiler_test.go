package profiler

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameMarshalRoundTrip(t *testing.T) {
	header := FrameHeader{NsStart: 100, NsEnd: 200, TscStart: 1000, TscEnd: 2000}
	payload := FramePayload{
		Profiles: [][]HWProfile{
			{
				{NsStart: 100, NsEnd: 200, Parent: NoParent, TaskID: 1, Depth: 0},
				{NsStart: 110, NsEnd: 150, Parent: 0, TaskID: 2, Depth: 1},
				{NsStart: 150, NsEnd: 190, Parent: 0, TaskID: 2, Depth: 1},
			},
		},
		Activity: [][]WorkerActivity{
			{{OnlineStartNs: 100, OnlineEndNs: 200}},
		},
		Runtimes: [][]ProcessRuntime{
			{{CPU: 0, RuntimeNs: 80}},
		},
	}
	header.Size = uint64(len(marshalFrame(header, payload)))
	raw := marshalFrame(header, payload)

	gotHeader, gotPayload := unmarshalFrame(raw, 1, 1)
	assert.Equal(t, header, gotHeader)
	require.Len(t, gotPayload.Profiles, 1)
	require.Len(t, gotPayload.Profiles[0], 3)
	assert.Equal(t, uint32(NoParent), gotPayload.Profiles[0][0].Parent)
	assert.Equal(t, uint32(0), gotPayload.Profiles[0][1].Parent)
	assert.EqualValues(t, 80, gotPayload.Runtimes[0][0].RuntimeNs)
}

// TestProfilerWriterReaderRoundTrip covers the S6 scenario: two
// frames, each with one root task and two children on worker 0, and
// verifies the reader recovers matching parent indices and monotonic
// ns_start across frames.
func TestProfilerWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.kaspf")

	w, err := NewWriter(path, 1, 0, 3_000_000_000)
	require.NoError(t, err)

	rootID, ok := w.AllocTaskID("frame_root")
	require.True(t, ok)
	childID, ok := w.AllocTaskID("child")
	require.True(t, ok)

	frame := func(nsStart, nsEnd uint64) FramePayload {
		return FramePayload{
			Profiles: [][]HWProfile{
				{
					{NsStart: nsStart, NsEnd: nsEnd, Parent: NoParent, TaskID: rootID, Depth: 0},
					{NsStart: nsStart + 1, NsEnd: nsStart + 5, Parent: 0, TaskID: childID, Depth: 1},
					{NsStart: nsStart + 5, NsEnd: nsEnd - 1, Parent: 0, TaskID: childID, Depth: 1},
				},
			},
		}
	}

	require.NoError(t, w.WriteFrame(1000, 2000, 3000, 6000, frame(1000, 2000)))
	require.NoError(t, w.WriteFrame(2000, 3000, 6000, 9000, frame(2000, 3000)))
	require.NoError(t, w.Close())

	r, err := OpenReader(path, 16)
	require.NoError(t, err)
	defer r.Close()

	assert.EqualValues(t, 2, r.FrameCount())
	assert.Equal(t, w.header.SessionID, r.SessionID())
	assert.NotEqual(t, uuid.Nil, r.SessionID())

	frames, err := r.Process(0, 10_000)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Less(t, frames[0].NsStart, frames[1].NsStart)

	for i, pf := range frames {
		require.Len(t, pf.Payload.Profiles, 1)
		profiles := pf.Payload.Profiles[0]
		require.Len(t, profiles, 3)
		assert.Equal(t, uint32(NoParent), profiles[0].Parent, "frame %d root has no parent", i)
		assert.Equal(t, uint32(0), profiles[1].Parent, "frame %d first child parents to root", i)
		assert.Equal(t, uint32(0), profiles[2].Parent, "frame %d second child parents to root", i)
		assert.Equal(t, rootID, profiles[0].TaskID)
		assert.Equal(t, childID, profiles[1].TaskID)
	}

	// the first frame's ns_end/tsc_end get patched in place once the
	// second frame starts, per WriteFrame's patchPreviousFrame step.
	assert.EqualValues(t, 2000, frames[0].Header.NsEnd)
	assert.EqualValues(t, 6000, frames[0].Header.TscEnd)
}

func TestWriterStopsAtFrameTableExhaustion(t *testing.T) {
	w := &Writer{}
	w.header.FrameCount = L1FrameCount
	err := w.WriteFrame(0, 0, 0, 0, FramePayload{})
	assert.ErrorIs(t, err, ErrFrameTableFull)
}

func TestSamplerEnterExitNesting(t *testing.T) {
	s := NewSampler(16, 8)
	root := s.Enter(1, 1000, 0)
	child := s.Enter(2, 1010, 0)
	s.Exit(child, 1040, 0)
	s.Exit(root, 1100, 0)

	spans := s.SwapFrame()
	require.Len(t, spans, 2)
	assert.Equal(t, uint32(NoParent), spans[0].Parent)
	assert.Equal(t, root, spans[1].Parent)
}

func TestSamplerDropsUnclosedSpanAtFrameBoundary(t *testing.T) {
	s := NewSampler(16, 8)
	s.Enter(1, 1000, 0) // never closed
	spans := s.SwapFrame()
	assert.Empty(t, spans)
}

func TestToHWProfilesComputesDepth(t *testing.T) {
	spans := []Span{
		{TscStart: 0, TscEnd: 100, Parent: NoParent, TaskID: 1},
		{TscStart: 10, TscEnd: 40, Parent: 0, TaskID: 2},
		{TscStart: 10, TscEnd: 20, Parent: 1, TaskID: 3},
	}
	hw := ToHWProfiles(spans, func(tsc uint64) uint64 { return tsc })
	assert.Equal(t, uint32(0), hw[0].Depth)
	assert.Equal(t, uint32(1), hw[1].Depth)
	assert.Equal(t, uint32(2), hw[2].Depth)
}
