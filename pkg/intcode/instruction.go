package intcode

// Opcodes.
const (
	OpAdd         = 1
	OpMultiply    = 2
	OpInput       = 3
	OpOutput      = 4
	OpJumpIfTrue  = 5
	OpJumpIfFalse = 6
	OpLessThan    = 7
	OpEquals      = 8
	OpHalt        = 99
)

// Instruction is a decoded operation with its resolved operands.
type Instruction interface {
	isInstruction()
}

// Add writes N1+N2 to To.
type Add struct {
	N1, N2 Parameter
	To     Position
}

// Multiply writes N1*N2 to To.
type Multiply struct {
	N1, N2 Parameter
	To     Position
}

// Input reads the next input value into To.
type Input struct {
	To Position
}

// Output emits From.
type Output struct {
	From Parameter
}

// JumpIfTrue jumps to Goto when Test is non-zero.
type JumpIfTrue struct {
	Test, Goto Parameter
}

// JumpIfFalse jumps to Goto when Test is zero.
type JumpIfFalse struct {
	Test, Goto Parameter
}

// LessThan writes 1 to To when N1 < N2, else 0.
type LessThan struct {
	N1, N2 Parameter
	To     Position
}

// Equals writes 1 to To when N1 == N2, else 0.
type Equals struct {
	N1, N2 Parameter
	To     Position
}

// Halt stops the machine (opcode 99).
type Halt struct{}

// End is reported when the instruction pointer runs past the end of memory.
// It behaves like Halt.
type End struct{}

func (Add) isInstruction()         {}
func (Multiply) isInstruction()    {}
func (Input) isInstruction()       {}
func (Output) isInstruction()      {}
func (JumpIfTrue) isInstruction()  {}
func (JumpIfFalse) isInstruction() {}
func (LessThan) isInstruction()    {}
func (Equals) isInstruction()      {}
func (Halt) isInstruction()        {}
func (End) isInstruction()         {}

// mode extracts the k-th operand mode digit from a modes-and-opcode word.
func mode(word int64, k int) int64 {
	div := int64(100)
	for i := 0; i < k; i++ {
		div *= 10
	}
	return word / div % 10
}

// Decode reads the instruction at ip and returns it together with the address
// just past its last operand word.
func Decode(mem Memory, ip Address) (Instruction, Address, error) {
	word, ok := mem.word(ip)
	if !ok {
		return End{}, ip, nil
	}
	ip++
	opcode := word % 100

	// Three-operand arithmetic and comparison shapes.
	ternary := func() (Parameter, Parameter, Position, error) {
		n1, err := resolveParameter(mem, &ip, mode(word, 0), 0, opcode)
		if err != nil {
			return nil, nil, 0, err
		}
		n2, err := resolveParameter(mem, &ip, mode(word, 1), 1, opcode)
		if err != nil {
			return nil, nil, 0, err
		}
		to, err := resolvePosition(mem, &ip, mode(word, 2), 2, opcode)
		if err != nil {
			return nil, nil, 0, err
		}
		return n1, n2, to, nil
	}

	// Two-operand jump shapes.
	jump := func() (Parameter, Parameter, error) {
		test, err := resolveParameter(mem, &ip, mode(word, 0), 0, opcode)
		if err != nil {
			return nil, nil, err
		}
		target, err := resolveParameter(mem, &ip, mode(word, 1), 1, opcode)
		if err != nil {
			return nil, nil, err
		}
		return test, target, nil
	}

	switch opcode {
	case OpAdd:
		n1, n2, to, err := ternary()
		if err != nil {
			return nil, ip, err
		}
		return Add{N1: n1, N2: n2, To: to}, ip, nil
	case OpMultiply:
		n1, n2, to, err := ternary()
		if err != nil {
			return nil, ip, err
		}
		return Multiply{N1: n1, N2: n2, To: to}, ip, nil
	case OpInput:
		to, err := resolvePosition(mem, &ip, mode(word, 0), 0, opcode)
		if err != nil {
			return nil, ip, err
		}
		return Input{To: to}, ip, nil
	case OpOutput:
		from, err := resolveParameter(mem, &ip, mode(word, 0), 0, opcode)
		if err != nil {
			return nil, ip, err
		}
		return Output{From: from}, ip, nil
	case OpJumpIfTrue:
		test, target, err := jump()
		if err != nil {
			return nil, ip, err
		}
		return JumpIfTrue{Test: test, Goto: target}, ip, nil
	case OpJumpIfFalse:
		test, target, err := jump()
		if err != nil {
			return nil, ip, err
		}
		return JumpIfFalse{Test: test, Goto: target}, ip, nil
	case OpLessThan:
		n1, n2, to, err := ternary()
		if err != nil {
			return nil, ip, err
		}
		return LessThan{N1: n1, N2: n2, To: to}, ip, nil
	case OpEquals:
		n1, n2, to, err := ternary()
		if err != nil {
			return nil, ip, err
		}
		return Equals{N1: n1, N2: n2, To: to}, ip, nil
	case OpHalt:
		return Halt{}, ip, nil
	default:
		return nil, ip, &InvalidOpcodeError{Opcode: opcode, Position: ip}
	}
}
