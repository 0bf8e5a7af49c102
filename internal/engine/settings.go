package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Standard event vocabulary evaluated by the health view.
const (
	EventPageView         = "PageView"
	EventAddToCart        = "AddToCart"
	EventInitiateCheckout = "InitiateCheckout"
	EventPurchase         = "Purchase"
)

// Settings carries every window, threshold and vocabulary entry the engine uses.
// It is passed into each call so thresholds stay independently testable and
// can be swapped on reload without touching engine state.
type Settings struct {
	HealthWindow    time.Duration `yaml:"healthWindow"`
	DuplicateWindow time.Duration `yaml:"duplicateWindow"`
	QualityWindow   time.Duration `yaml:"qualityWindow"`

	WarningAge time.Duration `yaml:"warningAge"`
	ErrorAge   time.Duration `yaml:"errorAge"`

	BaseScore     float64 `yaml:"baseScore"`
	HealthyBonus  float64 `yaml:"healthyBonus"`
	WarningBonus  float64 `yaml:"warningBonus"`
	ErrorBonus    float64 `yaml:"errorBonus"`
	IdentityBonus float64 `yaml:"identityBonus"`
	MaxScore      float64 `yaml:"maxScore"`

	QualityAlertThreshold float64  `yaml:"qualityAlertThreshold"`
	CheckoutEvent         string   `yaml:"checkoutEvent"`
	StandardEvents        []string `yaml:"standardEvents"`
}

// DefaultSettings returns the production thresholds.
func DefaultSettings() Settings {
	return Settings{
		HealthWindow:          72 * time.Hour,
		DuplicateWindow:       60 * time.Minute,
		QualityWindow:         24 * time.Hour,
		WarningAge:            4 * time.Hour,
		ErrorAge:              24 * time.Hour,
		BaseScore:             4.0,
		HealthyBonus:          3.0,
		WarningBonus:          1.5,
		ErrorBonus:            0.0,
		IdentityBonus:         2.1,
		MaxScore:              9.9,
		QualityAlertThreshold: 7.0,
		CheckoutEvent:         EventInitiateCheckout,
		StandardEvents:        []string{EventPageView, EventAddToCart, EventInitiateCheckout, EventPurchase},
	}
}

// Validate reports every problem with the settings at once.
func (s Settings) Validate() error {
	var errs []error
	windows := []struct {
		name  string
		value time.Duration
	}{
		{"healthWindow", s.HealthWindow},
		{"duplicateWindow", s.DuplicateWindow},
		{"qualityWindow", s.QualityWindow},
		{"warningAge", s.WarningAge},
		{"errorAge", s.ErrorAge},
	}
	for _, w := range windows {
		if w.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", w.name, w.value))
		}
	}
	if s.WarningAge >= s.ErrorAge {
		errs = append(errs, fmt.Errorf("warningAge (%s) must be below errorAge (%s)", s.WarningAge, s.ErrorAge))
	}
	if s.MaxScore <= 0 {
		errs = append(errs, fmt.Errorf("maxScore must be positive, got %v", s.MaxScore))
	}
	if s.HealthyBonus < s.WarningBonus || s.WarningBonus < s.ErrorBonus {
		errs = append(errs, errors.New("status bonuses must not increase as status worsens"))
	}
	if strings.TrimSpace(s.CheckoutEvent) == "" {
		errs = append(errs, errors.New("checkoutEvent is required"))
	}
	if len(s.StandardEvents) == 0 {
		errs = append(errs, errors.New("standardEvents must not be empty"))
	}
	seen := make(map[string]struct{}, len(s.StandardEvents))
	for _, name := range s.StandardEvents {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("standardEvents contains an empty name"))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("standardEvents lists %q twice", name))
		}
		seen[name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	s.StandardEvents = append([]string(nil), s.StandardEvents...)
	return s
}
