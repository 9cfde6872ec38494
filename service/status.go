package service

import (
	"context"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/contract"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
)

// Status reports the registry's contents and installation history,
// optionally narrowed to one plugin.
func (s *Service) Status(ctx context.Context, in StatusInput) (StatusReport, error) {
	return contract.Run("plugin_status", s.invariant, s.statusPre, nil, in,
		func(in StatusInput) (StatusReport, error) { return s.status(ctx, in) })
}

func (s *Service) statusPre(in StatusInput) error {
	if in.PluginID == "" {
		return nil
	}
	return s.checkRef(in.PluginID)
}

func (s *Service) status(ctx context.Context, in StatusInput) (StatusReport, error) {
	if err := ctx.Err(); err != nil {
		return StatusReport{}, operr.System("status canceled", err)
	}

	var metas []bundle.Metadata
	if in.PluginID != "" {
		meta, _, err := s.store.Get(identity.PluginID(in.PluginID))
		if err != nil {
			return StatusReport{}, operr.System("registry lookup", err)
		}
		metas = []bundle.Metadata{meta}
	} else {
		var err error
		metas, err = s.store.List()
		if err != nil {
			return StatusReport{}, operr.System("registry listing", err)
		}
	}

	history, err := s.store.History()
	if err != nil {
		return StatusReport{}, operr.System("reading installation history", err)
	}

	report := StatusReport{History: history}
	for _, meta := range metas {
		report.Plugins = append(report.Plugins, PluginStatus{
			PluginID:      meta.Identity.ID.String(),
			Name:          meta.Identity.Name.String(),
			Dialect:       meta.Dialect.String(),
			State:         meta.State,
			RiskScore:     meta.RiskScore.Int(),
			SecurityLevel: meta.Level.String(),
			CreatedAt:     meta.CreatedAt,
		})
	}
	report.Count = len(report.Plugins)
	return report, nil
}
