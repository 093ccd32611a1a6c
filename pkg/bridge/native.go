package bridge

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// bind turns raw native addresses into callable Go funcs. Zero addresses are
// left nil; purego panics on a nil address.
func bind(addrs Addresses) (d *Downcalls, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("binding native functions: %v", r)
		}
	}()

	d = &Downcalls{}
	register := func(fptr any, addr uintptr) {
		if addr != 0 {
			purego.RegisterFunc(fptr, addr)
		}
	}
	register(&d.SendMessage, addrs.SendMessage)
	register(&d.RegisterEvent, addrs.RegisterEvent)
	register(&d.GetAbilities, addrs.GetAbilities)
	register(&d.SetAbilities, addrs.SetAbilities)
	register(&d.GetLocation, addrs.GetLocation)
	register(&d.FreeString, addrs.FreeString)
	register(&d.GetWorld, addrs.GetWorld)
	register(&d.GetRegistryData, addrs.GetRegistryData)
	register(&d.PlayerEntityPlaySound, addrs.PlayerEntityPlaySound)
	register(&d.PlayerPlaySound, addrs.PlayerPlaySound)
	return d, nil
}
