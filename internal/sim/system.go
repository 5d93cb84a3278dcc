package sim

// System records the privileged operations the update core performs, so
// tests can assert on the final register state instead of branching for
// real. Branch and Park return control to the caller; on hardware neither
// does.
type System struct {
	critical int

	VectorBase    uint32
	VectorBaseSet bool

	Branched bool
	SP       uint32
	PC       uint32
	// BranchedInCritical records whether the jump happened with
	// interrupts still masked.
	BranchedInCritical bool

	Parked bool
}

// NewSystem returns a fresh recorder.
func NewSystem() *System {
	return &System{}
}

// RunCritical implements hal.System.
func (s *System) RunCritical(fn func()) {
	s.critical++
	defer func() { s.critical-- }()
	fn()
}

// InCritical reports whether a critical section is active. Flash uses this
// to police erase/program calls.
func (s *System) InCritical() bool {
	return s.critical > 0
}

// SetVectorBase implements hal.System.
func (s *System) SetVectorBase(addr uint32) {
	s.VectorBase = addr
	s.VectorBaseSet = true
}

// Branch implements hal.System.
func (s *System) Branch(sp, pc uint32) {
	s.Branched = true
	s.SP = sp
	s.PC = pc
	s.BranchedInCritical = s.InCritical()
}

// Park implements hal.System.
func (s *System) Park() {
	s.Parked = true
}
