// Package intcode implements the Intcode virtual machine.
//
// An Intcode program is a flat array of signed 64-bit integers that is both
// code and data. Each instruction is a modes-and-opcode word followed by its
// operand words; the two low decimal digits select the opcode and each higher
// digit selects the addressing mode of one operand:
//
//   - mode 0 (position): the operand is an address into memory
//   - mode 1 (immediate): the operand is a literal value
//
// Write targets must use position mode.
//
// Execution comes in two flavours sharing one core. Eval runs against a finite
// input slice with no side effects and suspends, rather than fails, when the
// input runs out. Run reads input lines interactively and writes output as it
// is produced.
package intcode
