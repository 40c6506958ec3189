package hat

import (
	"context"
	"fmt"
	"time"
)

// CloneOptions controls how a template is instantiated.
type CloneOptions struct {
	// Suffix is appended to the template id; defaults to a timestamp.
	Suffix    string
	TeamID    string
	FlowOrder *int
}

// IsTemplate reports whether h is a reusable template: no team and its base is itself.
func (h *Hat) IsTemplate() bool {
	return h != nil && h.TeamID == nil && h.BaseHatID != "" && h.BaseHatID == h.ID
}

// RegisterTemplate stores h as a template. Team placement is stripped.
func RegisterTemplate(ctx context.Context, s Store, h *Hat) (*Hat, error) {
	if h == nil {
		return nil, ErrInvalidInput
	}
	tmpl := h.Clone()
	if tmpl.ID == "" {
		tmpl.ID = NewID()
	}
	tmpl.TeamID = nil
	tmpl.FlowOrder = nil
	tmpl.BaseHatID = tmpl.ID
	Normalize(tmpl)
	if err := s.Put(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// ListTemplates returns every registered template.
func ListTemplates(ctx context.Context, s Store) ([]*Hat, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Hat, 0)
	for _, h := range all {
		if h.IsTemplate() {
			out = append(out, h)
		}
	}
	return out, nil
}

// CloneTemplate creates a new hat derived from the template templateID.
func CloneTemplate(ctx context.Context, s Store, templateID string, opts CloneOptions) (*Hat, error) {
	tmpl, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsTemplate() {
		return nil, fmt.Errorf("%w: %s is not a template", ErrInvalidInput, templateID)
	}

	suffix := opts.Suffix
	if suffix == "" {
		suffix = time.Now().Format("20060102150405")
	}
	clone := tmpl.Clone()
	clone.ID = templateID + "_" + suffix
	clone.Name = tmpl.Name + " Clone"
	clone.BaseHatID = templateID
	if opts.TeamID != "" {
		clone.TeamID = StringPtr(opts.TeamID)
	}
	if opts.FlowOrder != nil {
		clone.FlowOrder = IntPtr(*opts.FlowOrder)
	}
	if err := s.Put(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// FindByBase returns hats cloned from baseID, excluding the template itself.
func FindByBase(ctx context.Context, s Store, baseID string) ([]*Hat, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Hat, 0)
	for _, h := range all {
		if h.BaseHatID == baseID && h.ID != baseID {
			out = append(out, h)
		}
	}
	return out, nil
}
