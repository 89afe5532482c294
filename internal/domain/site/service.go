package site

import (
	"context"

	"github.com/go-faster/errors"
)

// Service manages themes and hero banners.
type Service struct {
	themes ThemeRepository
	heroes HeroRepository
}

// NewService creates a site Service.
func NewService(themes ThemeRepository, heroes HeroRepository) *Service {
	return &Service{themes: themes, heroes: heroes}
}

// Themes lists all themes.
func (s *Service) Themes(ctx context.Context) ([]Theme, error) {
	return s.themes.ListThemes(ctx)
}

// CreateTheme validates and stores a theme, activating it when requested.
func (s *Service) CreateTheme(ctx context.Context, t *Theme) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.themes.CreateTheme(ctx, t); err != nil {
		return errors.Wrap(err, "create theme")
	}
	return nil
}

// ActivateTheme makes the theme the only active one.
func (s *Service) ActivateTheme(ctx context.Context, id int64) error {
	if err := s.themes.ActivateTheme(ctx, id); err != nil {
		return errors.Wrapf(err, "activate theme %d", id)
	}
	return nil
}

// ActiveTheme returns the active theme, or DefaultTheme when none is set.
func (s *Service) ActiveTheme(ctx context.Context) (*Theme, error) {
	t, err := s.themes.ActiveTheme(ctx)
	if errors.Is(err, ErrNotFound) {
		def := DefaultTheme()
		return &def, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "active theme")
	}
	return t, nil
}

// Heroes lists all hero banners.
func (s *Service) Heroes(ctx context.Context) ([]Hero, error) {
	return s.heroes.ListHeroes(ctx)
}

// CreateHero validates and stores a hero banner.
func (s *Service) CreateHero(ctx context.Context, h *Hero) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.heroes.CreateHero(ctx, h); err != nil {
		return errors.Wrap(err, "create hero")
	}
	return nil
}

// ActivateHero makes the hero the only active one.
func (s *Service) ActivateHero(ctx context.Context, id int64) error {
	if err := s.heroes.ActivateHero(ctx, id); err != nil {
		return errors.Wrapf(err, "activate hero %d", id)
	}
	return nil
}

// ActiveHero returns the active hero or ErrNotFound.
func (s *Service) ActiveHero(ctx context.Context) (*Hero, error) {
	h, err := s.heroes.ActiveHero(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "active hero")
	}
	return h, nil
}
