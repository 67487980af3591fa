package reportwriter

import (
	"github.com/asyncify/asyncify/internal/report"
)

// FromModel adapts a report.Model into the narrow ModelView writers
// consume.
func FromModel(m *report.Model) ModelView {
	return &modelAdapter{m: m}
}

type modelAdapter struct{ m *report.Model }

func (a *modelAdapter) Seed() (string, error) {
	return a.m.NameOf(a.m.Seed)
}

func (a *modelAdapter) Entries() ([]Entry, error) {
	var out []Entry
	for _, key := range a.m.Map.Order {
		if key == report.Root {
			continue
		}
		node, err := a.m.Serialize(key)
		if err != nil {
			return nil, err
		}
		name, err := a.m.NameOf(key)
		if err != nil {
			return nil, err
		}

		entry := Entry{Node: node, Name: name, IsSyntaxErr: a.m.IsAsyncSyntaxError(key)}
		for _, e := range a.m.Map.Edges[key] {
			ev := EdgeView{}
			awaitStr, err := a.m.Serialize(e.AwaitNode)
			if err != nil {
				return nil, err
			}
			ev.AwaitNode = awaitStr
			if e.AsyncNode != report.Root {
				asyncName, err := a.m.NameOf(e.AsyncNode)
				if err == nil {
					ev.AsyncNode = asyncName
				}
			}
			entry.Edges = append(entry.Edges, ev)
		}
		out = append(out, entry)
	}
	return out, nil
}
