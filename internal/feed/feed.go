// Package feed loads the personalized updates and the shared navigation
// fragment through tiered sources.
package feed

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"foryou/internal/domain"
	"foryou/internal/logger"
	"foryou/internal/tiered"
)

// DefaultUpdates is shown when no updates source can be loaded.
func DefaultUpdates() []domain.Update {
	return []domain.Update{
		{ID: 1, Title: "Welcome back!", Message: "Check out your new dashboard features."},
		{ID: 2, Title: "Project Reminder", Message: "Don't forget to review your latest project."},
		{ID: 3, Title: "Tips & Tricks", Message: "Try our new shortcut keys for faster navigation."},
	}
}

// DefaultNav is rendered when the nav fragment cannot be loaded.
func DefaultNav() []domain.NavLink {
	return []domain.NavLink{
		{Href: "/for-you", Label: "For You", ID: "nav-for-you"},
		{Href: "/take-action", Label: "Take Action"},
		{Href: "/get-help", Label: "Get Help"},
	}
}

// Config locates the feed and nav sources.
type Config struct {
	UpdatesURL  string
	UpdatesFile string
	NavFile     string
	Timeout     time.Duration
}

// Service serves the feed and nav.
type Service struct {
	updates *tiered.Loader[[]domain.Update]
	nav     *tiered.Loader[Nav]
}

// Nav is the rendered navigation: either a raw HTML fragment or default links.
type Nav struct {
	Fragment template.HTML
	Links    []domain.NavLink
}

func NewService(cfg Config, fs afero.Fs, log *logger.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}

	updateSources := []tiered.Source{
		tiered.HTTPSource("updates-http", client, cfg.UpdatesURL),
		tiered.FileSource("updates-file", fs, cfg.UpdatesFile),
	}
	navSources := []tiered.Source{
		tiered.FileSource("nav-file", fs, cfg.NavFile),
	}

	return &Service{
		updates: tiered.NewLoader(updateSources, ParseUpdates, DefaultUpdates(), log),
		nav:     tiered.NewLoader(navSources, ParseNav, Nav{Links: DefaultNav()}, log),
	}
}

// Updates returns the personalized updates.
func (s *Service) Updates(ctx context.Context) []domain.Update {
	return s.updates.Load(ctx)
}

// Nav returns the navigation fragment.
func (s *Service) Nav(ctx context.Context) Nav {
	return s.nav.Load(ctx)
}

// ParseUpdates decodes a JSON array of updates. null decodes to an empty list.
func ParseUpdates(raw []byte) ([]domain.Update, error) {
	var updates []domain.Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, err
	}
	if updates == nil {
		updates = []domain.Update{}
	}
	return updates, nil
}

// ParseNav accepts a non-empty HTML fragment. The file is operator-provided
// and trusted.
func ParseNav(raw []byte) (Nav, error) {
	fragment := strings.TrimSpace(string(raw))
	if fragment == "" {
		return Nav{}, errors.New("empty nav fragment")
	}
	return Nav{Fragment: template.HTML(fragment)}, nil
}
