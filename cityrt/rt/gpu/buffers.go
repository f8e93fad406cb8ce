package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	instancer "github.com/gekko3d/instancer"
)

// GrowCapacity returns the byte size an instance buffer of size current
// needs to hold needed bytes: unchanged when it fits, otherwise 1.5x the
// request rounded up to the 4-byte copy alignment.
func GrowCapacity(current, needed uint64) uint64 {
	if needed <= current {
		return current
	}
	grown := needed + (needed+1)/2
	return (grown + 3) &^ 3
}

type instanceBuffer struct {
	buf   *wgpu.Buffer
	size  uint64
	count uint32
}

// InstanceBuffers owns one grow-only instance buffer per batch key.
type InstanceBuffers[K comparable] struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	logger instancer.Logger
	label  string
	bufs   map[K]*instanceBuffer
}

func NewInstanceBuffers[K comparable](device *wgpu.Device, label string, logger instancer.Logger) *InstanceBuffers[K] {
	return &InstanceBuffers[K]{
		device: device,
		queue:  device.GetQueue(),
		logger: instancer.OrNop(logger),
		label:  label,
		bufs:   make(map[K]*instanceBuffer),
	}
}

// Upload writes packed instance bytes for a batch, growing its buffer first
// when needed. An empty upload keeps the buffer and sets the count to zero.
func (b *InstanceBuffers[K]) Upload(key K, data []byte, count uint32) error {
	ib, ok := b.bufs[key]
	if !ok {
		ib = &instanceBuffer{}
		b.bufs[key] = ib
	}
	ib.count = count
	if len(data) == 0 {
		ib.count = 0
		return nil
	}

	needed := uint64(len(data))
	if ib.buf == nil || needed > ib.size {
		size := GrowCapacity(ib.size, needed)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s %v", b.label, key),
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("grow instance buffer %v to %d bytes: %w", key, size, err)
		}
		if ib.buf != nil {
			ib.buf.Release()
		}
		b.logger.Infof("instance buffer %s %v grown %d -> %d bytes", b.label, key, ib.size, size)
		ib.buf, ib.size = buf, size
	}
	b.queue.WriteBuffer(ib.buf, 0, data)
	return nil
}

func (b *InstanceBuffers[K]) Count(key K) uint32 {
	if ib, ok := b.bufs[key]; ok {
		return ib.count
	}
	return 0
}

// Reset zeroes every batch count without releasing buffers.
func (b *InstanceBuffers[K]) Reset() {
	for _, ib := range b.bufs {
		ib.count = 0
	}
}

// DrawCall pairs a mesh with a batch's instances. ok is false when the batch
// has nothing to draw.
func (b *InstanceBuffers[K]) DrawCall(mesh *MeshBuffers, key K) (DrawCall, bool) {
	ib, ok := b.bufs[key]
	if !ok || ib.count == 0 || ib.buf == nil {
		return DrawCall{}, false
	}
	return DrawCall{Mesh: mesh, Instances: ib.buf, Count: ib.count}, true
}

func (b *InstanceBuffers[K]) Release() {
	for k, ib := range b.bufs {
		if ib.buf != nil {
			ib.buf.Release()
		}
		delete(b.bufs, k)
	}
}

// MeshBuffers are the immutable vertex and index buffers of one mesh.
type MeshBuffers struct {
	Vertex     *wgpu.Buffer
	Index      *wgpu.Buffer
	IndexCount uint32
}

// padIndices pads to an even count so the index buffer is 4-byte aligned.
// The pad index is never read since draws use IndexCount.
func padIndices(indices []uint16) []uint16 {
	if len(indices)%2 == 0 {
		return indices
	}
	padded := make([]uint16, len(indices)+1)
	copy(padded, indices)
	return padded
}

func NewMeshBuffers[V VertexRecord](device *wgpu.Device, label string, vertices []V, indices []uint16) (*MeshBuffers, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh %s is empty", label)
	}
	vertexBuf, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label + " Vertex Buffer",
		Contents: MarshalVertices(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}
	indexBuf, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label + " Index Buffer",
		Contents: wgpu.ToBytes(padIndices(indices)),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vertexBuf.Release()
		return nil, err
	}
	return &MeshBuffers{Vertex: vertexBuf, Index: indexBuf, IndexCount: uint32(len(indices))}, nil
}

func (m *MeshBuffers) Release() {
	if m.Vertex != nil {
		m.Vertex.Release()
	}
	if m.Index != nil {
		m.Index.Release()
	}
}
