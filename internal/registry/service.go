// Package registry is the admin-managed effect catalog. Guests only read it
// through ListAllowedEffects; the admin surface owns every write.
package registry

import (
	"context"
	"regexp"
	"strings"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
)

var knownProviders = map[string]bool{
	domain.ProviderAILab:       true,
	domain.ProviderAILabBG:     true,
	domain.ProviderLightX:      true,
	domain.ProviderFluxKontext: true,
	domain.ProviderGemini:      true,
}

// Service combines the effect and screen repositories.
type Service struct {
	effects domain.EffectRepository
	screens domain.ScreenRepository
	logger  *infra.Logger
}

func NewService(effects domain.EffectRepository, screens domain.ScreenRepository, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{effects: effects, screens: screens, logger: logger}
}

// ListAllowedEffects returns the visible effects a screen may offer, in the
// screen's allow-list order. Effects of a disabled group are hidden.
func (s *Service) ListAllowedEffects(ctx context.Context, screenID string) ([]domain.EffectDefinition, error) {
	screenID = strings.TrimSpace(screenID)
	if screenID == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "screen id is required")
	}
	screen, err := s.screens.GetScreen(ctx, screenID)
	if err != nil {
		return nil, err
	}
	all, err := s.effects.ListEffects(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.EffectDefinition, len(all))
	for _, e := range all {
		byID[e.ID] = e
	}

	out := make([]domain.EffectDefinition, 0, len(screen.EffectIDs))
	seen := make(map[int64]bool, len(screen.EffectIDs))
	for _, id := range screen.EffectIDs {
		e, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		if e.IsVisible && screen.Allows(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Service) ListEffects(ctx context.Context) ([]domain.EffectDefinition, error) {
	return s.effects.ListEffects(ctx)
}

func (s *Service) GetEffect(ctx context.Context, id int64) (domain.EffectDefinition, error) {
	return s.effects.GetEffect(ctx, id)
}

func (s *Service) CreateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error) {
	def, err := normalizeDefinition(def)
	if err != nil {
		return domain.EffectDefinition{}, err
	}
	if err := s.checkSelectorKey(ctx, def); err != nil {
		return domain.EffectDefinition{}, err
	}
	created, err := s.effects.CreateEffect(ctx, def)
	if err != nil {
		return domain.EffectDefinition{}, err
	}
	s.logger.Info().Int64("effect_id", created.ID).Str("provider", created.ProviderName).Msg("registry: effect created")
	return created, nil
}

// UpdateEffect replaces the definition in place. Its param rows are
// replaced wholesale.
func (s *Service) UpdateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error) {
	if def.ID <= 0 {
		return domain.EffectDefinition{}, domain.NewError(domain.KindInvalidInput, "effect id is required")
	}
	def, err := normalizeDefinition(def)
	if err != nil {
		return domain.EffectDefinition{}, err
	}
	if err := s.checkSelectorKey(ctx, def); err != nil {
		return domain.EffectDefinition{}, err
	}
	updated, err := s.effects.UpdateEffect(ctx, def)
	if err != nil {
		return domain.EffectDefinition{}, err
	}
	s.logger.Info().Int64("effect_id", updated.ID).Msg("registry: effect updated")
	return updated, nil
}

// checkSelectorKey rejects def when another effect already answers to its
// selector key.
func (s *Service) checkSelectorKey(ctx context.Context, def domain.EffectDefinition) error {
	existing, err := s.effects.ListEffects(ctx)
	if err != nil {
		return err
	}
	key := def.SelectorKey()
	for _, e := range existing {
		if e.ID != def.ID && e.SelectorKey() == key {
			return domain.NewError(domain.KindInvalidInput, "selector key %q is already used by effect %d", key, e.ID)
		}
	}
	return nil
}

func (s *Service) DeleteEffect(ctx context.Context, id int64) error {
	if err := s.effects.DeleteEffect(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("effect_id", id).Msg("registry: effect deleted")
	return nil
}

func (s *Service) SetScreenEffects(ctx context.Context, screenID string, effectIDs []int64) error {
	if strings.TrimSpace(screenID) == "" {
		return domain.NewError(domain.KindInvalidInput, "screen id is required")
	}
	for _, id := range effectIDs {
		if _, err := s.effects.GetEffect(ctx, id); err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return domain.NewError(domain.KindInvalidInput, "unknown effect %d", id)
			}
			return err
		}
	}
	return s.screens.SetScreenEffects(ctx, screenID, effectIDs)
}

// SetGroupEnabled toggles a whole effect group for one screen.
func (s *Service) SetGroupEnabled(ctx context.Context, screenID, group string, enabled bool) error {
	g, ok := domain.ParseEffectGroup(group)
	if !ok {
		return domain.NewError(domain.KindInvalidInput, "unknown effect group %q", group)
	}
	if strings.TrimSpace(screenID) == "" {
		return domain.NewError(domain.KindInvalidInput, "screen id is required")
	}
	if err := s.screens.SetGroupEnabled(ctx, screenID, g, enabled); err != nil {
		return err
	}
	s.logger.Info().Str("screen_id", screenID).Str("group", string(g)).Bool("enabled", enabled).Msg("registry: group toggled")
	return nil
}

var authRefPattern = regexp.MustCompile(`^(env:[A-Z][A-Z0-9_]*|[a-z0-9][a-z0-9_.-]{0,63})$`)

func normalizeDefinition(def domain.EffectDefinition) (domain.EffectDefinition, error) {
	def.DisplayName = strings.TrimSpace(def.DisplayName)
	if def.DisplayName == "" {
		return def, domain.NewError(domain.KindInvalidInput, "display name is required")
	}
	def.ProviderName = strings.ToLower(strings.TrimSpace(def.ProviderName))
	if !knownProviders[def.ProviderName] {
		return def, domain.NewError(domain.KindInvalidInput, "unknown provider %q", def.ProviderName)
	}
	g, ok := domain.ParseEffectGroup(string(def.EffectGroup))
	if !ok {
		return def, domain.NewError(domain.KindInvalidInput, "unknown effect group %q", def.EffectGroup)
	}
	def.EffectGroup = g
	def.Endpoint = strings.TrimSpace(def.Endpoint)
	if def.Endpoint == "" && def.ProviderName != domain.ProviderGemini {
		return def, domain.NewError(domain.KindInvalidInput, "endpoint is required for %s", def.ProviderName)
	}
	params := make([]domain.Param, 0, len(def.StaticParams))
	for i, p := range def.StaticParams {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return def, domain.NewError(domain.KindInvalidInput, "param %d has no name", i)
		}
		p.ID = 0
		params = append(params, p)
	}
	def.StaticParams = params
	def.AuthKeyRef = strings.TrimSpace(def.AuthKeyRef)
	if def.AuthKeyRef != "" && !authRefPattern.MatchString(def.AuthKeyRef) {
		return def, domain.NewError(domain.KindInvalidInput, "authKeyRef must be env:NAME or an integration token name")
	}
	return def, nil
}
