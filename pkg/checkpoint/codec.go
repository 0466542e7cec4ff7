package checkpoint

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// maxDecodedSize bounds the decompressed size of a checkpoint. A full
// memory image costs at most nine CBOR bytes per word.
const maxDecodedSize = 16 * intcode.MaxMemory

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("checkpoint: create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{MaxArrayElements: 1 << 25}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("checkpoint: create CBOR dec mode: %v", err))
	}
	decMode = dm

	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(fmt.Sprintf("checkpoint: create zstd encoder: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		panic(fmt.Sprintf("checkpoint: create zstd decoder: %v", err))
	}
}

// Marshal encodes cp as zstd-compressed canonical CBOR.
func Marshal(cp *Checkpoint) ([]byte, error) {
	data, err := encMode.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return zstdEncoder.EncodeAll(data, nil), nil
}

// Unmarshal decodes data produced by Marshal and checks that the result can
// be resumed.
func Unmarshal(data []byte) (*Checkpoint, error) {
	return unmarshal(zstdDecoder, data)
}

func unmarshal(dec *zstd.Decoder, data []byte) (*Checkpoint, error) {
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	var cp Checkpoint
	if err := decMode.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCorrupt, err)
	}
	if err := cp.validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}
