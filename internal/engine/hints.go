package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/claritypixel/pixel-health/internal/models"
)

// HintBook attaches remediation hints to alerts.
type HintBook struct {
	rules []HintRule
}

// HintRule is a single remediation rule.
type HintRule struct {
	ID    string    `yaml:"id"`
	Match HintMatch `yaml:"match"`
	Hints []string  `yaml:"hints"`
}

// HintMatch defines optional alert attributes a rule requires.
type HintMatch struct {
	AlertID         string   `yaml:"alert_id"`
	Severity        string   `yaml:"severity"`
	MessageContains []string `yaml:"message_contains"`
}

// HintFile is the YAML root structure.
type HintFile struct {
	Rules []HintRule `yaml:"rules"`
}

// DefaultHintBook returns the built-in remediation hints.
func DefaultHintBook() *HintBook {
	return &HintBook{rules: []HintRule{
		{
			ID:    "duplicate-events",
			Match: HintMatch{AlertID: models.AlertIDDuplicateEvents},
			Hints: []string{
				"Send the same event_id from the browser pixel and the server-side call so the platform can deduplicate them",
				"Check the order confirmation page for tags that fire twice",
			},
		},
		{
			ID:    "low-quality-checkout",
			Match: HintMatch{AlertID: models.AlertIDLowQualityCheckout},
			Hints: []string{
				"Forward the first-party browser identifier with checkout events",
				"Confirm the checkout event fires on every checkout start, not only on retries",
			},
		},
	}}
}

// NewHintBook loads rules from path. An empty path or a missing file yields the built-in book.
func NewHintBook(path string, logger *slog.Logger) (*HintBook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return DefaultHintBook(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("hint book not found, using built-in hints", slog.String("path", path))
			return DefaultHintBook(), nil
		}
		return nil, fmt.Errorf("read hint book: %w", err)
	}
	var file HintFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse hint book %s: %w", path, err)
	}
	return &HintBook{rules: file.Rules}, nil
}

// Len reports how many rules are loaded.
func (b *HintBook) Len() int {
	if b == nil {
		return 0
	}
	return len(b.rules)
}

// Hints returns the de-duplicated hints of every rule matching alert, in rule order.
func (b *HintBook) Hints(alert models.Alert) []string {
	if b == nil {
		return nil
	}
	var matched []string
	for _, rule := range b.rules {
		if rule.Match.AlertID != "" && rule.Match.AlertID != alert.ID {
			continue
		}
		if rule.Match.Severity != "" && !strings.EqualFold(rule.Match.Severity, string(alert.Severity)) {
			continue
		}
		if !messageContains(alert.Message, rule.Match.MessageContains) {
			continue
		}
		matched = appendUnique(matched, rule.Hints...)
	}
	return matched
}

func messageContains(message string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, h := range existing {
		seen[h] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
