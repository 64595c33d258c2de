package feedback

import "github.com/leapstack-labs/psplay/pkg/core"

// View is what the page shows for one identifier: the error region, the
// result lines and the two indicators.
type View struct {
	Error   string   `json:"error"`
	Results []string `json:"results"`
	OK      bool     `json:"ok"`
	NOK     bool     `json:"nok"`
}

// Render maps a state to its view. Idle and Pending show nothing.
func Render(s State) View {
	switch s.Phase {
	case Succeeded:
		v := View{OK: true}
		switch o := s.Outcome.(type) {
		case core.Output:
			v.Results = o.Lines
		case core.TestResult:
			v.Results = o.Lines
		}
		return v
	case Failed:
		return View{Error: s.Message, NOK: true}
	default:
		return View{}
	}
}
