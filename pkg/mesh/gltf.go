package mesh

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// glTF 2.0 component and target constants.
const (
	gltfComponentFloat = 5126
	gltfComponentUint  = 5125

	gltfTargetArrayBuffer        = 34962
	gltfTargetElementArrayBuffer = 34963

	gltfModeTriangles = 4
)

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type gltfBuffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
	Target     int `json:"target,omitempty"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ByteOffset    int       `json:"byteOffset"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Mode       int            `json:"mode"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfNode struct {
	Mesh int `json:"mesh"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfDoc struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Accessors   []gltfAccessor   `json:"accessors"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Buffers     []gltfBuffer     `json:"buffers"`
}

// ExportGLTF serializes the mesh as a self-contained glTF 2.0 JSON
// document with the geometry embedded as a base64 data URI. Meshes
// without normals omit the NORMAL attribute.
func ExportGLTF(m *Mesh) (string, error) {
	if m.IsEmpty() {
		return "", fmt.Errorf("mesh: cannot export an empty mesh to glTF")
	}
	if len(m.Vertices)%3 != 0 {
		return "", fmt.Errorf("mesh: vertex buffer length %d is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return "", fmt.Errorf("mesh: index buffer length %d is not a multiple of 3", len(m.Indices))
	}

	withNormals := m.HasNormals()

	posBytes := floatsToLE(m.Vertices)
	var normBytes []byte
	if withNormals {
		normBytes = floatsToLE(m.Normals)
	}
	idxBytes := make([]byte, len(m.Indices)*4)
	for i, v := range m.Indices {
		binary.LittleEndian.PutUint32(idxBytes[i*4:], v)
	}

	buffer := append(append(append([]byte{}, posBytes...), normBytes...), idxBytes...)

	minPos := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	maxPos := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := 0; i < len(m.Vertices); i += 3 {
		for c := 0; c < 3; c++ {
			v := m.Vertices[i+c]
			if v < minPos[c] {
				minPos[c] = v
			}
			if v > maxPos[c] {
				maxPos[c] = v
			}
		}
	}

	views := []gltfBufferView{{
		Buffer:     0,
		ByteOffset: 0,
		ByteLength: len(posBytes),
		ByteStride: 12,
		Target:     gltfTargetArrayBuffer,
	}}
	accessors := []gltfAccessor{{
		BufferView:    0,
		ComponentType: gltfComponentFloat,
		Count:         m.VertexCount(),
		Type:          "VEC3",
		Min:           minPos[:],
		Max:           maxPos[:],
	}}
	attributes := map[string]int{"POSITION": 0}

	if withNormals {
		views = append(views, gltfBufferView{
			Buffer:     0,
			ByteOffset: len(posBytes),
			ByteLength: len(normBytes),
			ByteStride: 12,
			Target:     gltfTargetArrayBuffer,
		})
		accessors = append(accessors, gltfAccessor{
			BufferView:    1,
			ComponentType: gltfComponentFloat,
			Count:         m.VertexCount(),
			Type:          "VEC3",
		})
		attributes["NORMAL"] = 1
	}

	indexView := len(views)
	views = append(views, gltfBufferView{
		Buffer:     0,
		ByteOffset: len(posBytes) + len(normBytes),
		ByteLength: len(idxBytes),
		Target:     gltfTargetElementArrayBuffer,
	})
	indexAccessor := len(accessors)
	accessors = append(accessors, gltfAccessor{
		BufferView:    indexView,
		ComponentType: gltfComponentUint,
		Count:         len(m.Indices),
		Type:          "SCALAR",
	})

	name := m.Name
	if name == "" {
		name = "body"
	}
	doc := gltfDoc{
		Asset:  gltfAsset{Version: "2.0", Generator: "bodyforge"},
		Scene:  0,
		Scenes: []gltfScene{{Nodes: []int{0}}},
		Nodes:  []gltfNode{{Mesh: 0}},
		Meshes: []gltfMesh{{
			Name: name,
			Primitives: []gltfPrimitive{{
				Attributes: attributes,
				Indices:    &indexAccessor,
				Mode:       gltfModeTriangles,
			}},
		}},
		Accessors:   accessors,
		BufferViews: views,
		Buffers: []gltfBuffer{{
			ByteLength: len(buffer),
			URI:        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buffer),
		}},
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("mesh: encode glTF: %w", err)
	}
	return string(out), nil
}

func floatsToLE(fs []float32) []byte {
	out := make([]byte, len(fs)*4)
	for i, f := range fs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
