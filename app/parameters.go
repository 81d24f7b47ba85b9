package app

import (
	"github.com/naosoccer/stack/nodes/audio"
	"github.com/naosoccer/stack/nodes/control"
	"github.com/naosoccer/stack/nodes/vision"
)

// Parameters is the typed form of the merged parameter document. Each cycler sees its own
// section.
type Parameters struct {
	Control control.Parameters `json:"control"`
	Vision  vision.Parameters  `json:"vision"`
	Audio   audio.Parameters   `json:"audio"`
}

// DefaultParameters mirror etc/parameters/default.json.
func DefaultParameters() Parameters {
	return Parameters{
		Control: control.DefaultParameters(),
		Vision:  vision.DefaultParameters(),
		Audio:   audio.DefaultParameters(),
	}
}
