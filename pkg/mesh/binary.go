package mesh

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Binary interchange layout: a 12-byte header of three little-endian
// uint32 byte lengths (vertex buffer, index buffer, normal buffer),
// followed by the three raw buffers in that order. A zero-length
// normal section means the consumer computes its own normals.

const binaryHeaderSize = 12

// EncodeBinary serializes the mesh into the binary interchange layout.
func EncodeBinary(m *Mesh) []byte {
	vertexBytes := len(m.Vertices) * 4
	indexBytes := len(m.Indices) * 4
	normalBytes := len(m.Normals) * 4

	buf := make([]byte, binaryHeaderSize+vertexBytes+indexBytes+normalBytes)
	binary.LittleEndian.PutUint32(buf[0:], uint32(vertexBytes))
	binary.LittleEndian.PutUint32(buf[4:], uint32(indexBytes))
	binary.LittleEndian.PutUint32(buf[8:], uint32(normalBytes))

	off := binaryHeaderSize
	for _, v := range m.Vertices {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, i := range m.Indices {
		binary.LittleEndian.PutUint32(buf[off:], i)
		off += 4
	}
	for _, n := range m.Normals {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(n))
		off += 4
	}
	return buf
}

// WriteBinary writes the binary interchange encoding to w.
func WriteBinary(w io.Writer, m *Mesh) error {
	_, err := w.Write(EncodeBinary(m))
	return err
}

// DecodeBinary parses the binary interchange layout back into a Mesh.
func DecodeBinary(data []byte) (*Mesh, error) {
	if len(data) < binaryHeaderSize {
		return nil, fmt.Errorf("mesh: binary data too short for header: %d bytes", len(data))
	}
	vertexBytes := binary.LittleEndian.Uint32(data[0:])
	indexBytes := binary.LittleEndian.Uint32(data[4:])
	normalBytes := binary.LittleEndian.Uint32(data[8:])

	if vertexBytes%4 != 0 || indexBytes%4 != 0 || normalBytes%4 != 0 {
		return nil, fmt.Errorf("mesh: binary section lengths not 4-byte aligned: %d/%d/%d", vertexBytes, indexBytes, normalBytes)
	}
	want := binaryHeaderSize + int(vertexBytes) + int(indexBytes) + int(normalBytes)
	if len(data) != want {
		return nil, fmt.Errorf("mesh: binary data is %d bytes, header implies %d", len(data), want)
	}

	m := &Mesh{
		Vertices: make([]float32, vertexBytes/4),
		Indices:  make([]uint32, indexBytes/4),
		Normals:  make([]float32, normalBytes/4),
	}

	off := binaryHeaderSize
	for i := range m.Vertices {
		m.Vertices[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	for i := range m.Indices {
		m.Indices[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	for i := range m.Normals {
		m.Normals[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	return m, nil
}
