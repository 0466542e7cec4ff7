package intcode

// StepMeter bounds the number of instructions a machine may execute.
type StepMeter struct {
	used  uint64
	limit uint64
}

// NewStepMeter creates a meter allowing limit steps. A zero limit never
// trips.
func NewStepMeter(limit uint64) *StepMeter {
	return &StepMeter{limit: limit}
}

// Consume records n executed steps.
func (sm *StepMeter) Consume(n uint64) error {
	sm.used += n
	if sm.limit > 0 && sm.used > sm.limit {
		return ErrStepLimitExceeded
	}
	return nil
}

// Used returns the number of steps consumed so far.
func (sm *StepMeter) Used() uint64 {
	return sm.used
}

// Remaining returns the steps left, or 0 for an unlimited meter.
func (sm *StepMeter) Remaining() uint64 {
	if sm.limit == 0 || sm.used >= sm.limit {
		return 0
	}
	return sm.limit - sm.used
}
