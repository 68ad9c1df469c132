package patterns

import (
	"fmt"

	"github.com/netweave-xyz/go-netweave/petri"
)

// PointToPoint is the single-transmission pattern IP-1: agent A1 sends
// one message that agent A2 receives over a channel place.
type PointToPoint struct{}

// Name returns "IP1".
func (PointToPoint) Name() string { return "IP1" }

// Agents returns the two slots, sender first.
func (PointToPoint) Agents() []string { return []string{"A1", "A2"} }

// Net returns the local subnet for one agent slot. The channel place
// belongs to the composition, not to either agent.
func (PointToPoint) Net(agent string) (*petri.Net, petri.Marking, petri.Marking, error) {
	switch agent {
	case "A1":
		return agentFlow("IP1_A1", "p_A1_start", "t_send", "a!", "p_A1_end")
	case "A2":
		return agentFlow("IP1_A2", "p_A2_start", "t_receive", "a?", "p_A2_end")
	}
	return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
}

// Composite returns the full pattern with the channel place p_A wired
// between the send and receive transitions.
func (PointToPoint) Composite() (*petri.Net, petri.Marking, petri.Marking) {
	net, err := petri.Build("IP-1").
		Place("p_A1_start").Place("p_A2_start").
		Place("p_A").
		Place("p_A1_end").Place("p_A2_end").
		Transition("t_send", "a!").
		Transition("t_receive", "a?").
		Arc("p_A1_start", "t_send").
		Arc("p_A2_start", "t_receive").
		Arc("t_send", "p_A").
		Arc("p_A", "t_receive").
		Arc("t_send", "p_A1_end").
		Arc("t_receive", "p_A2_end").
		Done()
	if err != nil {
		// The topology is static; a build failure is a typo in this file.
		panic(err)
	}
	initial, final := net.DeriveMarkings()
	return net, initial, final
}

// agentFlow builds the one-step local subnet start -> t(label) -> end.
func agentFlow(name, start, trans, label, end string) (*petri.Net, petri.Marking, petri.Marking, error) {
	net, err := petri.Build(name).
		Place(start).
		Transition(trans, label).
		Place(end).
		Flow(start, trans, end).
		Done()
	if err != nil {
		return nil, nil, nil, err
	}
	initial, final := net.DeriveMarkings()
	return net, initial, final, nil
}
