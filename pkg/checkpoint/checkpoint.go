// Package checkpoint persists suspended Intcode evaluations so they can be
// resumed later, either with more batch input or interactively.
//
// A checkpoint is the residual memory image, the address of the pending
// Input instruction and the output produced so far. Checkpoints are
// identified by the BLAKE3 digest of their canonical encoding, so capturing
// the same state twice yields the same ID.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/intcode"
)

var (
	// ErrNotFound is returned when a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("checkpoint store closed")

	// ErrCompleted is returned when capturing a run that already halted.
	ErrCompleted = errors.New("evaluation completed, nothing to checkpoint")

	// ErrCorrupt is returned when stored data does not decode to a valid
	// checkpoint.
	ErrCorrupt = errors.New("corrupt checkpoint")
)

// Checkpoint is a suspended evaluation.
type Checkpoint struct {
	// Program is the digest of the original program image.
	Program types.Digest `cbor:"1,keyasint" json:"program"`

	// Memory is the memory image at suspension.
	Memory intcode.Memory `cbor:"2,keyasint" json:"memory"`

	// IP is the address of the pending Input instruction.
	IP intcode.Address `cbor:"3,keyasint" json:"ip"`

	// UsedInput counts input values consumed since the program started.
	UsedInput int `cbor:"4,keyasint" json:"usedInput"`

	// Output holds every value emitted since the program started.
	Output []int64 `cbor:"5,keyasint" json:"output"`

	// CreatedAt is when the checkpoint was captured. It is not part of the ID.
	CreatedAt time.Time `cbor:"6,keyasint" json:"createdAt"`
}

// identity is the part of a checkpoint its ID is computed over.
type identity struct {
	Program   types.Digest    `cbor:"1,keyasint"`
	Memory    intcode.Memory  `cbor:"2,keyasint"`
	IP        intcode.Address `cbor:"3,keyasint"`
	UsedInput int             `cbor:"4,keyasint"`
	Output    []int64         `cbor:"5,keyasint"`
}

// Capture builds a checkpoint from a suspended evaluation of program.
func Capture(program intcode.Memory, res *intcode.Result) (*Checkpoint, error) {
	return capture(types.ProgramDigest(program), res, 0, nil)
}

func capture(program types.Digest, res *intcode.Result, used int, output []int64) (*Checkpoint, error) {
	if res == nil {
		return nil, fmt.Errorf("capture: nil result")
	}
	if res.Completed || res.State != intcode.Suspended {
		return nil, ErrCompleted
	}
	out := make([]int64, 0, len(output)+len(res.Output))
	out = append(out, output...)
	out = append(out, res.Output...)
	return &Checkpoint{
		Program:   program,
		Memory:    res.Memory.Clone(),
		IP:        res.IP,
		UsedInput: used + res.UsedInput,
		Output:    out,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ID returns the checkpoint's content digest.
func (cp *Checkpoint) ID() types.Digest {
	data, err := encMode.Marshal(identity{
		Program:   cp.Program,
		Memory:    cp.Memory,
		IP:        cp.IP,
		UsedInput: cp.UsedInput,
		Output:    cp.Output,
	})
	if err != nil {
		// Encoding plain integers and byte arrays cannot fail.
		panic(fmt.Sprintf("checkpoint: encode identity: %v", err))
	}
	return types.ContentDigest(data)
}

// Result reconstructs the suspended evaluation result, including all output
// produced before suspension.
func (cp *Checkpoint) Result() *intcode.Result {
	return &intcode.Result{
		Memory:    cp.Memory.Clone(),
		Output:    append([]int64(nil), cp.Output...),
		IP:        cp.IP,
		UsedInput: cp.UsedInput,
		State:     intcode.Suspended,
	}
}

// Resume continues the evaluation with more input. The returned result
// holds only output produced after the checkpoint.
func (cp *Checkpoint) Resume(input []int64, opts ...intcode.Option) (*intcode.Result, error) {
	return intcode.Continue(cp.Memory, cp.IP, input, opts...)
}

// Interact continues the evaluation interactively, like intcode.Run.
func (cp *Checkpoint) Interact(in intcode.LineReader, out io.Writer, opts ...intcode.Option) (*intcode.Result, error) {
	return intcode.Run(cp.Memory, cp.IP, in, out, opts...)
}

// Next captures the state after resuming cp. Input and output counts
// accumulate so the new checkpoint describes the whole run.
func (cp *Checkpoint) Next(res *intcode.Result) (*Checkpoint, error) {
	return capture(cp.Program, res, cp.UsedInput, cp.Output)
}

// Info summarises a stored checkpoint.
type Info struct {
	ID        types.Digest    `json:"id"`
	Program   types.Digest    `json:"program"`
	IP        intcode.Address `json:"ip"`
	UsedInput int             `json:"usedInput"`
	Outputs   int             `json:"outputs"`
	Words     int             `json:"words"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Info summarises cp.
func (cp *Checkpoint) Info() Info {
	return Info{
		ID:        cp.ID(),
		Program:   cp.Program,
		IP:        cp.IP,
		UsedInput: cp.UsedInput,
		Outputs:   len(cp.Output),
		Words:     len(cp.Memory),
		CreatedAt: cp.CreatedAt,
	}
}

// validate checks that cp can be resumed.
func (cp *Checkpoint) validate() error {
	if cp.Program.IsZero() {
		return fmt.Errorf("%w: missing program digest", ErrCorrupt)
	}
	if cp.IP < 0 || int(cp.IP) >= len(cp.Memory) {
		return fmt.Errorf("%w: resume address %d outside memory of %d words", ErrCorrupt, cp.IP, len(cp.Memory))
	}
	if cp.Memory[cp.IP]%100 != intcode.OpInput {
		return fmt.Errorf("%w: no input instruction at %d", ErrCorrupt, cp.IP)
	}
	if cp.UsedInput < 0 {
		return fmt.Errorf("%w: negative input count", ErrCorrupt)
	}
	return nil
}
