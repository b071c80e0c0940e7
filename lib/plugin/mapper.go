package plugin

import (
	"github.com/snowmerak/spotter.go/lib/protocol"
)

// Map converts options into their wire form, registering every attached
// callback under a fresh id. The result has the same length and order as the
// input. Presentation fields are copied as-is and ids are only set for
// callbacks that are present. Identical options mapped twice get distinct ids.
func (c *Callbacks) Map(options []Option) []protocol.MappedOption {
	mapped := make([]protocol.MappedOption, 0, len(options))

	for _, opt := range options {
		m := protocol.MappedOption{
			Name:      opt.Name,
			Hint:      opt.Hint,
			Icon:      opt.Icon,
			IsHovered: opt.IsHovered,
			Priority:  opt.Priority,
			Important: opt.Important,
		}

		if opt.Action != nil {
			m.ActionID = c.RegisterAction(opt.Action)
		}
		if opt.OnQuery != nil {
			m.OnQueryID = c.RegisterQuery(opt.OnQuery)
		}

		mapped = append(mapped, m)
	}

	return mapped
}
