package melviewhkb

import (
	"net/http"

	"github.com/brutella/hap/characteristic"
)

// status code hap expects from a ValueRequestFunc on success
const hapOK = 0

// serve reads from fn instead of the cached characteristic value
func onGetInt(c *characteristic.C, fn func() int) {
	c.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return fn(), hapOK
	}
}

func onGetFloat(c *characteristic.C, fn func() float64) {
	c.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return fn(), hapOK
	}
}

// custom to us
// outdoor temperature E8700120
// fault               E8700121

type outdoorTemperature struct {
	*characteristic.Float
}

func newOutdoorTemperature() *outdoorTemperature {
	c := characteristic.NewFloat("E8700120")
	c.Format = characteristic.FormatFloat
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionEvents}
	c.Description = "Outdoor Temperature"
	c.Unit = characteristic.UnitCelsius
	c.SetMinValue(-50)
	c.SetMaxValue(70)
	c.SetStepValue(0.5)
	c.SetValue(0)

	return &outdoorTemperature{c}
}

type fault struct {
	*characteristic.String
}

func newFault() *fault {
	c := characteristic.NewString("E8700121")
	c.Format = characteristic.FormatString
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionEvents}
	c.Description = "Fault"
	c.SetValue("")

	return &fault{c}
}
