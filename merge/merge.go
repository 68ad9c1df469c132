// Package merge combines independently discovered agent nets into one
// multi-agent net. Asynchronous interactions are wired by pairing
// send-labelled transitions with their receive counterparts through a
// channel place; synchronous joint actions, which appear as same-name
// transitions in several agent nets, are collapsed into one.
package merge

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/netweave-xyz/go-netweave/petri"
)

// ErrNoNets is returned when there is nothing to merge.
var ErrNoNets = errors.New("merge: no nets")

// Values written under the "resource" property key of merged elements.
const (
	RoleSend    = "!"
	RoleReceive = "?"
	RoleChannel = "channel"
	RoleSync    = "sync"
)

// minFuzzyRunes is the shortest marker-stripped label eligible for
// fuzzy matching. Shorter labels carry too little signal for an edit
// distance to mean anything.
const minFuzzyRunes = 3

// Channel records one wired send/receive pair.
type Channel struct {
	Send    string // sender label
	Receive string // receiver label
	Place   string // channel place name
	Fuzzy   bool   // matched by similarity rather than equality
}

type options struct {
	threshold float64
	send      string
	recv      string
	log       *zap.Logger
}

// Option configures the merge.
type Option func(*options)

// WithThreshold sets the fuzzy similarity threshold. It is a tunable:
// lower values risk wiring unrelated activities, higher values risk
// missing misspelled counterparts.
func WithThreshold(f float64) Option {
	return func(o *options) { o.threshold = f }
}

// WithMarkers replaces the conventional "!" send and "?" receive
// label markers.
func WithMarkers(send, recv string) Option {
	return func(o *options) {
		o.send = send
		o.recv = recv
	}
}

// WithLogger sets the merge logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) *options {
	o := &options{threshold: 0.7, send: "!", recv: "?", log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is a merged multi-agent net with its derived markings.
type Result struct {
	Net      *petri.Net
	Initial  petri.Marking
	Final    petri.Marking
	Channels []Channel
	Synced   int
}

// Nets unions all input nets into one fresh net, wires asynchronous
// channels, collapses synchronous duplicates, and derives markings.
// The inputs are never modified.
func Nets(nets []*petri.Net, opts ...Option) (*Result, error) {
	if len(nets) == 0 {
		return nil, ErrNoNets
	}
	o := buildOptions(opts)

	names := make([]string, len(nets))
	for i, n := range nets {
		names[i] = n.Name
	}
	merged := petri.NewNet(strings.Join(names, "+"))

	for _, n := range nets {
		clone := make(map[petri.Node]petri.Node, len(n.Places)+len(n.Transitions))
		for _, p := range n.Places {
			np := merged.AddPlace(p.Name)
			for k, v := range p.Properties {
				np.SetProperty(k, v)
			}
			clone[p] = np
		}
		for _, t := range n.Transitions {
			nt := merged.AddTransition(t.Name, t.Label)
			for k, v := range t.Properties {
				nt.SetProperty(k, v)
			}
			clone[t] = nt
		}
		for _, a := range n.Arcs {
			mustArc(merged, clone[a.Source], clone[a.Target])
		}
	}

	channels := ConnectAsync(merged, opts...)
	synced := ConnectSync(merged)
	initial, final := merged.DeriveMarkings()

	o.log.Info("merged nets",
		zap.Int("nets", len(nets)),
		zap.Int("channels", len(channels)),
		zap.Int("synced", synced),
	)

	return &Result{
		Net:      merged,
		Initial:  initial,
		Final:    final,
		Channels: channels,
		Synced:   synced,
	}, nil
}

// ConnectAsync wires every send-labelled transition to its receiving
// counterparts: exact label matches first, then, for labels long
// enough to be meaningful, fuzzy matches at or above the similarity
// threshold. Each matched pair gets its own channel place named after
// the send label. Senders with no counterpart are tagged and left
// unconnected; a partial model may legitimately talk to an agent that
// is not part of the merge.
func ConnectAsync(net *petri.Net, opts ...Option) []Channel {
	o := buildOptions(opts)
	var channels []Channel

	// Wiring adds places and arcs; snapshot the senders first.
	var senders []*petri.Transition
	for _, t := range net.Transitions {
		if t.Label != "" && strings.Contains(t.Label, o.send) {
			senders = append(senders, t)
		}
	}

	for _, send := range senders {
		send.SetProperty("resource", RoleSend)
		recvLabel := strings.ReplaceAll(send.Label, o.send, o.recv)

		receivers, fuzzy := receiversFor(net, send, recvLabel, o)
		if len(receivers) == 0 {
			o.log.Debug("unmatched send transition", zap.String("label", send.Label))
			continue
		}
		for _, recv := range receivers {
			recv.SetProperty("resource", RoleReceive)
			ch := net.AddPlace(send.Label)
			ch.SetProperty("resource", RoleChannel)
			mustArc(net, send, ch)
			mustArc(net, ch, recv)
			channels = append(channels, Channel{
				Send:    send.Label,
				Receive: recv.Label,
				Place:   ch.Name,
				Fuzzy:   fuzzy,
			})
			if fuzzy {
				o.log.Debug("fuzzy channel",
					zap.String("send", send.Label),
					zap.String("receive", recv.Label),
					zap.Float64("similarity", Similarity(recvLabel, recv.Label)),
				)
			}
		}
	}
	return channels
}

// receiversFor finds the receiving transitions for one sender.
func receiversFor(net *petri.Net, send *petri.Transition, recvLabel string, o *options) ([]*petri.Transition, bool) {
	var exact []*petri.Transition
	for _, t := range net.Transitions {
		if t != send && t.Label == recvLabel {
			exact = append(exact, t)
		}
	}
	if len(exact) > 0 {
		return exact, false
	}

	stripped := strings.ReplaceAll(send.Label, o.send, "")
	if utf8.RuneCountInString(stripped) < minFuzzyRunes {
		return nil, false
	}
	var fuzzy []*petri.Transition
	for _, t := range net.Transitions {
		if t == send || t.Label == "" || !strings.Contains(t.Label, o.recv) {
			continue
		}
		if Similarity(recvLabel, t.Label) >= o.threshold {
			fuzzy = append(fuzzy, t)
		}
	}
	return fuzzy, true
}

// ConnectSync folds distinct transitions sharing a name into one: the
// first in insertion order survives, absorbing the arcs of each later
// duplicate, and is tagged as a synchronous joint action. Returns the
// number of transitions absorbed.
func ConnectSync(net *petri.Net) int {
	transitions := make([]*petri.Transition, len(net.Transitions))
	copy(transitions, net.Transitions)

	absorbed := make(map[*petri.Transition]bool)
	synced := 0

	for _, survivor := range transitions {
		if absorbed[survivor] {
			continue
		}
		for _, dup := range transitions {
			if dup == survivor || absorbed[dup] || dup.Name != survivor.Name {
				continue
			}
			for _, a := range net.InArcs(dup) {
				mustArc(net, a.Source, survivor)
			}
			for _, a := range net.OutArcs(dup) {
				mustArc(net, survivor, a.Target)
			}
			survivor.SetProperty("resource", RoleSync)
			absorbed[dup] = true
			if err := net.RemoveTransition(dup); err != nil {
				panic(err)
			}
			synced++
		}
	}
	return synced
}

// Similarity is the normalized Levenshtein ratio of two labels: one
// minus the edit distance over the longer rune length. Identical
// strings score 1, disjoint strings approach 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// mustArc adds an arc between two elements already in the net. The
// endpoints are members by construction, so failure is a corruption.
func mustArc(net *petri.Net, source, target petri.Node) {
	if _, err := net.AddArc(source, target); err != nil {
		panic(err)
	}
}
