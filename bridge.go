package melviewhkb

import (
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"
)

// Bridge builds the root accessory on which the units hang
func (p *Platform) Bridge() *accessory.A {
	root := accessory.NewBridge(accessory.Info{
		Name:         "Melview-Homekit Bridge",
		SerialNumber: "1201",
		Manufacturer: "cloudkucooland",
		Model:        "melview-homekit",
		Firmware:     "0.1.0",
	})
	root.A.Id = 1

	settings := settingsService{}
	settings.S = service.New("E880") // custom

	settings.Name = characteristic.NewName()
	settings.Name.SetValue("Settings")
	settings.S.AddC(settings.Name.C)

	settings.PollRate = newPollRate(p.conf.PollInterval())
	settings.PollRate.OnValueRemoteUpdate(func(secs int) {
		log.Info.Printf("setting poll rate to %ds", secs)
		p.SetPollInterval(time.Duration(secs) * time.Second)
	})
	settings.S.AddC(settings.PollRate.C)

	root.A.AddS(settings.S)

	return root.A
}

// bridge-wide tunables
type settingsService struct {
	*service.S

	Name     *characteristic.Name
	PollRate *pollRate
}

type pollRate struct {
	*characteristic.Int
}

func newPollRate(d time.Duration) *pollRate {
	c := characteristic.NewInt("E8802")
	c.Format = characteristic.FormatUInt32
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionWrite}
	c.Description = "Poll Rate"
	c.SetMinValue(1)
	c.SetMaxValue(3600)
	c.SetValue(int(d / time.Second))

	return &pollRate{c}
}
