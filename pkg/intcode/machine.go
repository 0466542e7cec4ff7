package intcode

import "fmt"

// State is the run state of a Machine.
type State int

// Machine states.
const (
	Running State = iota
	Halted
	Suspended
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Suspended:
		return "suspended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Machine.
type Options struct {
	// MaxSteps bounds the number of executed instructions. Zero means no bound.
	MaxSteps uint64
}

// Option mutates Options.
type Option func(*Options)

// WithMaxSteps sets Options.MaxSteps.
func WithMaxSteps(n uint64) Option {
	return func(o *Options) { o.MaxSteps = n }
}

// Result is the outcome of an evaluation. It is returned alongside any error
// so output produced before a failure is not lost.
type Result struct {
	// Memory is the memory image when the machine stopped.
	Memory Memory
	// Output holds every value emitted, in order.
	Output []int64
	// IP is where the machine stopped. For a suspended machine it is the
	// address of the Input instruction that found no value.
	IP Address
	// UsedInput is the number of input values consumed.
	UsedInput int
	// Completed reports whether Halt or End was reached.
	Completed bool
	// Steps is the number of instructions executed.
	Steps uint64
	// State is the final machine state.
	State State
}

// Machine executes a memory image. It is not safe for concurrent use.
type Machine struct {
	mem    Memory
	ip     Address
	used   int
	output []int64
	state  State
	meter  *StepMeter
}

// NewMachine creates a machine that starts executing mem at ip. The machine
// takes ownership of mem.
func NewMachine(mem Memory, ip Address, opts ...Option) *Machine {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return &Machine{
		mem:   mem,
		ip:    ip,
		state: Running,
		meter: NewStepMeter(o.MaxSteps),
	}
}

// State returns the current machine state.
func (m *Machine) State() State { return m.state }

// IP returns the current instruction pointer.
func (m *Machine) IP() Address { return m.ip }

// Result snapshots the machine.
func (m *Machine) Result() *Result {
	return &Result{
		Memory:    m.mem,
		Output:    m.output,
		IP:        m.ip,
		UsedInput: m.used,
		Completed: m.state == Halted,
		Steps:     m.meter.Used(),
		State:     m.state,
	}
}

// inputFunc supplies the next input value. ok is false when no value is
// available and the machine should suspend.
type inputFunc func() (v int64, ok bool, err error)

// outputFunc observes each emitted value.
type outputFunc func(v int64) error

// run decodes and executes instructions until the machine halts, suspends, or
// fails.
func (m *Machine) run(next inputFunc, emit outputFunc) error {
	m.state = Running
	for m.state == Running {
		start := m.ip
		ins, ip, err := Decode(m.mem, m.ip)
		if err != nil {
			return err
		}

		// An Input that suspends is not executed and costs no step.
		if _, ok := ins.(Input); !ok {
			if err := m.meter.Consume(1); err != nil {
				return err
			}
		}
		m.ip = ip

		switch ins := ins.(type) {
		case Add:
			err = m.store(ins.To, ins.N1.Value(m.mem)+ins.N2.Value(m.mem))
		case Multiply:
			err = m.store(ins.To, ins.N1.Value(m.mem)*ins.N2.Value(m.mem))
		case Input:
			v, ok, rerr := next()
			if rerr != nil {
				m.ip = start
				return rerr
			}
			if !ok {
				m.ip = start
				m.state = Suspended
				break
			}
			if err := m.meter.Consume(1); err != nil {
				m.ip = start
				return err
			}
			m.used++
			err = m.store(ins.To, v)
		case Output:
			v := ins.From.Value(m.mem)
			m.output = append(m.output, v)
			if emit != nil {
				err = emit(v)
			}
		case JumpIfTrue:
			if ins.Test.Value(m.mem) != 0 {
				err = m.jump(ins.Goto, OpJumpIfTrue)
			}
		case JumpIfFalse:
			if ins.Test.Value(m.mem) == 0 {
				err = m.jump(ins.Goto, OpJumpIfFalse)
			}
		case LessThan:
			err = m.store(ins.To, boolWord(ins.N1.Value(m.mem) < ins.N2.Value(m.mem)))
		case Equals:
			err = m.store(ins.To, boolWord(ins.N1.Value(m.mem) == ins.N2.Value(m.mem)))
		case Halt, End:
			m.state = Halted
		default:
			err = fmt.Errorf("unhandled instruction %T at position %d", ins, start)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) store(to Position, v int64) error {
	mem, err := m.mem.Write(to.Index(), v)
	if err != nil {
		return err
	}
	m.mem = mem
	return nil
}

// jump moves the instruction pointer to target's value, which must be
// non-negative.
func (m *Machine) jump(target Parameter, opcode int64) error {
	dest := target.Value(m.mem)
	if dest < 0 {
		return &NegativePositionalParameterError{Value: dest, Parameter: 1, Opcode: opcode, Position: m.ip}
	}
	m.ip = Address(dest)
	return nil
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Eval runs program from address 0 against a finite input sequence without
// performing any I/O. Running out of input suspends the machine; the result
// then points at the unsatisfied Input instruction. program is not modified.
func Eval(program Memory, input []int64, opts ...Option) (*Result, error) {
	return Continue(program, 0, input, opts...)
}

// Continue is Eval starting at ip. Feeding a suspended result's memory and IP
// back in with the remaining input yields the same output as a single Eval
// over the full input.
func Continue(mem Memory, ip Address, input []int64, opts ...Option) (*Result, error) {
	m := NewMachine(mem.Clone(), ip, opts...)
	cursor := 0
	next := func() (int64, bool, error) {
		if cursor >= len(input) {
			return 0, false, nil
		}
		v := input[cursor]
		cursor++
		return v, true, nil
	}
	err := m.run(next, nil)
	return m.Result(), err
}
