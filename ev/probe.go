package ev

import (
	"fmt"

	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/protocol/xdgoutput"
	"github.com/bnema/wlshellev/wire"
)

// ProbeOutputs connects to display and reports every output without
// creating surfaces.
func ProbeOutputs(display string) ([]OutputInfo, error) {
	conn, err := Connect(display)
	if err != nil {
		return nil, err
	}
	return Probe(conn)
}

// Probe reports the outputs known on conn and closes it.
func Probe(conn *wire.Conn) ([]OutputInfo, error) {
	defer conn.Close()

	g, err := collectGlobals(conn)
	if err != nil {
		return nil, err
	}
	if _, ok := g.List.Find(xdgoutput.ManagerInterface); ok {
		g.XdgOutput = &xdgoutput.Manager{}
		if _, err := g.Bind(xdgoutput.ManagerInterface, xdgoutput.ManagerVersion, g.XdgOutput); err != nil {
			return nil, err
		}
	}

	var outputs []*Output
	for _, gl := range g.List.All(wl.OutputInterface) {
		o, err := newOutput(g, gl)
		if err != nil {
			return nil, err
		}
		o.watchXdg(g.XdgOutput, func(XdgInfoKind) {})
		outputs = append(outputs, o)
	}
	if err := conn.Roundtrip(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	infos := make([]OutputInfo, len(outputs))
	for i, o := range outputs {
		infos[i] = o.Info
	}
	return infos, nil
}
