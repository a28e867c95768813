package artifacts

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// tensor is one F32 tensor read from a safetensors file.
type tensor struct {
	shape []int
	data  []float32
}

// readSafetensors loads every tensor in a safetensors file. Only F32 tensors
// are supported.
func readSafetensors(path string) (map[string]tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("file too small: %d bytes", len(data))
	}

	// 8-byte LE header length, then a JSON header, then the raw buffer.
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	base := int(8 + headerLen)
	tensors := make(map[string]tensor, len(header))
	for name, raw := range header {
		if name == "__metadata__" {
			continue
		}
		var meta struct {
			Dtype       string `json:"dtype"`
			Shape       []int  `json:"shape"`
			DataOffsets [2]int `json:"data_offsets"`
		}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("tensor %s: parse metadata: %w", name, err)
		}
		if meta.Dtype != "F32" {
			return nil, fmt.Errorf("tensor %s: expected dtype F32, got %s", name, meta.Dtype)
		}

		n := 1
		for _, d := range meta.Shape {
			n *= d
		}
		start := base + meta.DataOffsets[0]
		end := base + meta.DataOffsets[1]
		if end-start != n*4 {
			return nil, fmt.Errorf("tensor %s: data size %d doesn't match shape %v", name, end-start, meta.Shape)
		}
		if start < base || end > len(data) {
			return nil, fmt.Errorf("tensor %s: data range [%d:%d] exceeds file size %d", name, start, end, len(data))
		}

		values := make([]float32, n)
		for i := range values {
			bits := binary.LittleEndian.Uint32(data[start+i*4 : start+i*4+4])
			values[i] = math.Float32frombits(bits)
		}
		tensors[name] = tensor{shape: meta.Shape, data: values}
	}
	return tensors, nil
}
