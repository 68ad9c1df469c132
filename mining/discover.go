package mining

import (
	"context"
	"fmt"
	"sort"

	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/petri"
)

// Method selects a discovery algorithm.
type Method int

const (
	// MethodAlpha is the alpha algorithm; see Alpha.
	MethodAlpha Method = iota
	// MethodHeuristic filters edges by dependency score; see Heuristic.
	MethodHeuristic
	// MethodCommonPath models only the most frequent trace variant; see
	// CommonPath.
	MethodCommonPath
)

// String returns the method name used on the command line.
func (m Method) String() string {
	switch m {
	case MethodAlpha:
		return "alpha"
	case MethodHeuristic:
		return "heuristic"
	case MethodCommonPath:
		return "common-path"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps a method name to its Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "alpha":
		return MethodAlpha, nil
	case "heuristic":
		return MethodHeuristic, nil
	case "common-path":
		return MethodCommonPath, nil
	default:
		return 0, fmt.Errorf("mining: unknown method %q (alpha, heuristic, common-path)", name)
	}
}

// Discover runs the selected miner on the log.
func Discover(ctx context.Context, log *eventlog.Log, method Method) (*petri.Net, petri.Marking, petri.Marking, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	switch method {
	case MethodAlpha:
		return Alpha(log)
	case MethodHeuristic:
		return Heuristic(log, DefaultHeuristicConfig())
	case MethodCommonPath:
		return CommonPath(log)
	default:
		return nil, nil, nil, fmt.Errorf("mining: unknown method %d", int(method))
	}
}

// Discoverer adapts a method to the function shape orchestrators accept
// as a discovery black box.
func Discoverer(method Method) func(context.Context, *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error) {
	return func(ctx context.Context, log *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error) {
		return Discover(ctx, log, method)
	}
}

// CommonPath reduces the log to its most frequent trace variant and
// returns that sequence as a net: a linear chain from p_source to
// p_sink with one transition per step, internal places named after the
// surrounding pair. Ties between variants break on the smaller variant
// key. Repeated activities yield same-name sibling transitions.
func CommonPath(log *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error) {
	counts := make(map[string]int)
	sequences := make(map[string][]string)
	for _, trace := range log.Traces() {
		variant := trace.ActivityVariant()
		if len(variant) == 0 {
			continue
		}
		key := fmt.Sprintf("%v", variant)
		counts[key]++
		if _, ok := sequences[key]; !ok {
			sequences[key] = variant
		}
	}
	if len(counts) == 0 {
		return nil, nil, nil, ErrEmptyLog
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, key := range keys[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}

	net := petri.NewNet("common-path")
	variant := sequences[best]
	prev := net.AddPlace("p_source")
	source := prev
	for i, act := range variant {
		t := net.AddTransition(act, act)
		name := "p_sink"
		if i < len(variant)-1 {
			name = "p_" + act + "_" + variant[i+1]
		}
		next := net.AddPlace(name)
		arc(net, prev, t)
		arc(net, t, next)
		prev = next
	}
	return net, petri.Marking{source: 1}, petri.Marking{prev: 1}, nil
}
