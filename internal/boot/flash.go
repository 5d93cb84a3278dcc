package boot

import "github.com/blupboot/blup/internal/hal"

// guardedFlash is the only path the state machine has to flash mutation.
// It wraps every erase and program cycle in System.RunCritical, upholding
// the hardware requirement that nothing executes while the controller is
// mid-cycle. Reads need no guard.
type guardedFlash struct {
	flash hal.Flash
	sys   hal.System
}

func (g *guardedFlash) erase(offset, length uint32) error {
	var err error
	g.sys.RunCritical(func() {
		err = g.flash.Erase(offset, length)
	})
	return err
}

func (g *guardedFlash) program(offset uint32, data []byte) error {
	var err error
	g.sys.RunCritical(func() {
		err = g.flash.Program(offset, data)
	})
	return err
}

func (g *guardedFlash) read(offset uint32, buf []byte) error {
	return g.flash.Read(offset, buf)
}
