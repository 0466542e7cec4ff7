package rpc

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// ParseEncoding parses an encoding string. Unknown values fall back to JSON.
func ParseEncoding(s string) Encoding {
	switch s {
	case "base58":
		return EncodingBase58
	case "base64":
		return EncodingBase64
	case "base64+zstd":
		return EncodingBase64Zstd
	default:
		return EncodingJSON
	}
}

// memoryBytes packs a memory image as little-endian 64-bit words.
func memoryBytes(mem intcode.Memory) []byte {
	data := make([]byte, 8*len(mem))
	for i, w := range mem {
		binary.LittleEndian.PutUint64(data[8*i:], uint64(w))
	}
	return data
}

// EncodeMemory encodes a memory image. JSON returns the words themselves;
// the binary encodings return [data, encoding] pairs of packed words.
func EncodeMemory(mem intcode.Memory, encoding Encoding) (interface{}, error) {
	switch encoding {
	case EncodingBase58:
		return []string{base58.Encode(memoryBytes(mem)), string(EncodingBase58)}, nil

	case EncodingBase64:
		return []string{base64.StdEncoding.EncodeToString(memoryBytes(mem)), string(EncodingBase64)}, nil

	case EncodingBase64Zstd:
		compressed, err := compressZstd(memoryBytes(mem))
		if err != nil {
			return nil, fmt.Errorf("zstd compression failed: %w", err)
		}
		return []string{base64.StdEncoding.EncodeToString(compressed), string(EncodingBase64Zstd)}, nil

	default:
		words := []int64(mem)
		if words == nil {
			words = []int64{}
		}
		return words, nil
	}
}

// DecodeMemory reverses the binary encodings of EncodeMemory.
func DecodeMemory(encoded string, encoding Encoding) (intcode.Memory, error) {
	data, err := DecodeBlob(encoded, encoding)
	if err != nil {
		return nil, err
	}
	if encoding == EncodingBase64Zstd {
		if data, err = decompressZstd(data, maxMemoryBytes); err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("memory length %d is not a multiple of 8", len(data))
	}
	mem := make(intcode.Memory, len(data)/8)
	for i := range mem {
		mem[i] = int64(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return mem, nil
}

// EncodeBlob encodes opaque bytes such as exported checkpoints.
func EncodeBlob(data []byte, encoding Encoding) string {
	if encoding == EncodingBase58 {
		return base58.Encode(data)
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBlob decodes EncodeBlob output.
func DecodeBlob(s string, encoding Encoding) ([]byte, error) {
	if encoding == EncodingBase58 {
		return base58.Decode(s)
	}
	return base64.StdEncoding.DecodeString(s)
}

// compressZstd compresses data using zstd.
func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

// maxMemoryBytes is the size of the largest memory image DecodeMemory accepts.
const maxMemoryBytes = 8 * intcode.MaxMemory

// decompressZstd decompresses zstd-compressed data of at most limit bytes.
func decompressZstd(data []byte, limit uint64) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}
