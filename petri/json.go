package petri

import (
	"encoding/json"
	"fmt"
)

// Document is the JSON interchange form of a net plus its markings.
// Element entries carry a positional id (p0, p1, t0, ...) so that
// documents survive nets whose element names repeat; arcs reference
// ids, names are display data.
type Document struct {
	Name        string          `json:"name,omitempty"`
	Places      []PlaceDoc      `json:"places"`
	Transitions []TransitionDoc `json:"transitions"`
	Arcs        []ArcDoc        `json:"arcs"`
}

// PlaceDoc is one place entry. Initial and Final carry the token counts
// of the corresponding markings.
type PlaceDoc struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Initial    int               `json:"initial,omitempty"`
	Final      int               `json:"final,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// TransitionDoc is one transition entry. An empty label marks a silent
// transition.
type TransitionDoc struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Label      string            `json:"label,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ArcDoc references its endpoints by entry id.
type ArcDoc struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ToDocument converts a net and its markings into interchange form.
// Nil markings are allowed.
func ToDocument(n *Net, initial, final Marking) *Document {
	doc := &Document{
		Name:        n.Name,
		Places:      make([]PlaceDoc, 0, len(n.Places)),
		Transitions: make([]TransitionDoc, 0, len(n.Transitions)),
		Arcs:        make([]ArcDoc, 0, len(n.Arcs)),
	}
	ids := make(map[Node]string, len(n.Places)+len(n.Transitions))
	for i, p := range n.Places {
		id := fmt.Sprintf("p%d", i)
		ids[p] = id
		doc.Places = append(doc.Places, PlaceDoc{
			ID:         id,
			Name:       p.Name,
			Initial:    initial[p],
			Final:      final[p],
			Properties: copyProperties(p.Properties),
		})
	}
	for i, t := range n.Transitions {
		id := fmt.Sprintf("t%d", i)
		ids[t] = id
		doc.Transitions = append(doc.Transitions, TransitionDoc{
			ID:         id,
			Name:       t.Name,
			Label:      t.Label,
			Properties: copyProperties(t.Properties),
		})
	}
	for _, a := range n.Arcs {
		doc.Arcs = append(doc.Arcs, ArcDoc{Source: ids[a.Source], Target: ids[a.Target]})
	}
	return doc
}

// Net rebuilds the net and markings described by the document.
func (d *Document) Net() (*Net, Marking, Marking, error) {
	n := NewNet(d.Name)
	initial := make(Marking)
	final := make(Marking)
	nodes := make(map[string]Node, len(d.Places)+len(d.Transitions))
	for _, pd := range d.Places {
		if _, exists := nodes[pd.ID]; exists {
			return nil, nil, nil, fmt.Errorf("document: duplicate id %q", pd.ID)
		}
		if pd.Initial < 0 || pd.Final < 0 {
			return nil, nil, nil, fmt.Errorf("document: place %q: negative token count", pd.ID)
		}
		p := n.AddPlace(pd.Name)
		p.Properties = copyProperties(pd.Properties)
		if pd.Initial > 0 {
			initial[p] = pd.Initial
		}
		if pd.Final > 0 {
			final[p] = pd.Final
		}
		nodes[pd.ID] = p
	}
	for _, td := range d.Transitions {
		if _, exists := nodes[td.ID]; exists {
			return nil, nil, nil, fmt.Errorf("document: duplicate id %q", td.ID)
		}
		t := n.AddTransition(td.Name, td.Label)
		t.Properties = copyProperties(td.Properties)
		nodes[td.ID] = t
	}
	for _, ad := range d.Arcs {
		source, ok := nodes[ad.Source]
		if !ok {
			return nil, nil, nil, fmt.Errorf("document: arc source %q not declared", ad.Source)
		}
		target, ok := nodes[ad.Target]
		if !ok {
			return nil, nil, nil, fmt.Errorf("document: arc target %q not declared", ad.Target)
		}
		if _, err := n.AddArc(source, target); err != nil {
			return nil, nil, nil, fmt.Errorf("document: %w", err)
		}
	}
	return n, initial, final, nil
}

// ToJSON serializes a net and its markings as an indented document.
func ToJSON(n *Net, initial, final Marking) ([]byte, error) {
	return json.MarshalIndent(ToDocument(n, initial, final), "", "  ")
}

// FromJSON parses a document produced by ToJSON.
func FromJSON(data []byte) (*Net, Marking, Marking, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("document: %w", err)
	}
	return doc.Net()
}
