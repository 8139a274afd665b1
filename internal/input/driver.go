package input

import (
	"fmt"
	"os/exec"
)

// OSDriver injects key events into the focused window through xdotool, the
// same shell-out pattern used for other host automation. The game window must
// have focus; the agent never steals it.
type OSDriver struct {
	tool string
}

// NewOSDriver returns the default host key driver.
func NewOSDriver() *OSDriver {
	return &OSDriver{tool: "xdotool"}
}

func (d *OSDriver) KeyDown(key string) error {
	return d.exec("keydown", key)
}

func (d *OSDriver) KeyUp(key string) error {
	return d.exec("keyup", key)
}

func (d *OSDriver) exec(action, key string) error {
	out, err := exec.Command(d.tool, action, key).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s %s failed: %v (%s)", d.tool, action, key, err, out)
	}
	return nil
}
