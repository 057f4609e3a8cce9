package profiler

import (
	"bytes"
	"encoding/binary"
)

// marshalFrame serializes header+payload into the exact byte layout
// frame_header describes: the fixed header, then per-worker LwHeader,
// then per-cpu-buffer KtHeader, then the raw profile/activity/runtime
// arrays those headers point into (offsets relative to the start of
// that data section).
func marshalFrame(header FrameHeader, payload FramePayload) []byte {
	data := new(bytes.Buffer)
	lwHeaders := make([]LwHeader, len(payload.Profiles))
	for i, profiles := range payload.Profiles {
		lwHeaders[i].ProfileOffset = uint64(data.Len())
		lwHeaders[i].ProfileCount = uint64(len(profiles))
		for _, p := range profiles {
			_ = binary.Write(data, byteOrder, p)
		}
	}
	for i := range lwHeaders {
		var acts []WorkerActivity
		if i < len(payload.Activity) {
			acts = payload.Activity[i]
		}
		lwHeaders[i].ActivityOffset = uint64(data.Len())
		lwHeaders[i].ActivityCount = uint64(len(acts))
		for _, a := range acts {
			_ = binary.Write(data, byteOrder, a)
		}
	}

	ktHeaders := make([]KtHeader, len(payload.Runtimes))
	for i, rts := range payload.Runtimes {
		ktHeaders[i].PrOffset = uint64(data.Len())
		ktHeaders[i].PrCount = uint64(len(rts))
		for _, r := range rts {
			_ = binary.Write(data, byteOrder, r)
		}
	}

	headerBytes := new(bytes.Buffer)
	_ = binary.Write(headerBytes, byteOrder, header)
	_ = binary.Write(headerBytes, byteOrder, lwHeaders)
	_ = binary.Write(headerBytes, byteOrder, ktHeaders)

	out := new(bytes.Buffer)
	out.Write(headerBytes.Bytes())
	out.Write(data.Bytes())
	return out.Bytes()
}

// frameFixedSize is sizeof(struct frame_header) in this port: five
// uint64 fields.
const frameFixedSize = 8 * 5

// lwHeaderSize / ktHeaderSize are the marshaled sizes of LwHeader and
// KtHeader (four and two uint64 fields respectively).
const (
	lwHeaderSize = 8 * 4
	ktHeaderSize = 8 * 2
)

// unmarshalFrame is marshalFrame's inverse, given how many worker and
// kernel-buffer headers the frame was written with.
func unmarshalFrame(raw []byte, workerCount, kernelBufferCount int) (FrameHeader, FramePayload) {
	r := bytes.NewReader(raw)
	var header FrameHeader
	_ = binary.Read(r, byteOrder, &header)

	lwHeaders := make([]LwHeader, workerCount)
	_ = binary.Read(r, byteOrder, &lwHeaders)
	ktHeaders := make([]KtHeader, kernelBufferCount)
	_ = binary.Read(r, byteOrder, &ktHeaders)

	dataStart := frameFixedSize + workerCount*lwHeaderSize + kernelBufferCount*ktHeaderSize
	data := raw[dataStart:]

	payload := FramePayload{Workers: lwHeaders, Kernel: ktHeaders}
	payload.Profiles = make([][]HWProfile, workerCount)
	payload.Activity = make([][]WorkerActivity, workerCount)
	payload.Runtimes = make([][]ProcessRuntime, kernelBufferCount)

	for i, lw := range lwHeaders {
		profiles := make([]HWProfile, lw.ProfileCount)
		pr := bytes.NewReader(data[lw.ProfileOffset:])
		for j := range profiles {
			_ = binary.Read(pr, byteOrder, &profiles[j])
		}
		payload.Profiles[i] = profiles

		activity := make([]WorkerActivity, lw.ActivityCount)
		ar := bytes.NewReader(data[lw.ActivityOffset:])
		for j := range activity {
			_ = binary.Read(ar, byteOrder, &activity[j])
		}
		payload.Activity[i] = activity
	}
	for i, kt := range ktHeaders {
		runtimes := make([]ProcessRuntime, kt.PrCount)
		rr := bytes.NewReader(data[kt.PrOffset:])
		for j := range runtimes {
			_ = binary.Read(rr, byteOrder, &runtimes[j])
		}
		payload.Runtimes[i] = runtimes
	}
	return header, payload
}
