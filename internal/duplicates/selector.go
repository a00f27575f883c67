package duplicates

import (
	"fmt"
	"log/slog"
	"strings"
)

// Strategy chooses which detector family Select may return.
type Strategy string

const (
	// StrategyAuto uses the LLM when it is configured, else the threshold.
	StrategyAuto Strategy = "auto"
	// StrategyThreshold always uses the score threshold.
	StrategyThreshold Strategy = "threshold"
	// StrategyNone disables duplicate detection.
	StrategyNone Strategy = "none"
)

// ParseStrategy parses a strategy name, case-insensitively. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyThreshold:
		return StrategyThreshold, nil
	case StrategyNone:
		return StrategyNone, nil
	default:
		return "", fmt.Errorf("unknown duplicate strategy %q (want auto, threshold or none)", s)
	}
}

// SelectorConfig is the configuration Select decides from.
type SelectorConfig struct {
	Strategy Strategy
	// LLMAPIKey is the model credential; empty means the LLM is not configured.
	LLMAPIKey string
	Threshold float64
	TopN      int
}

// Select returns the detector for cfg. It is a pure function of its
// inputs apart from logging:
//
//	strategy none                   -> NullDetector
//	strategy threshold              -> ThresholdDetector
//	credential and completer        -> LLMDetector
//	credential without completer    -> ThresholdDetector (warning)
//	no credential                   -> ThresholdDetector
func Select(cfg SelectorConfig, completer Completer, logger *slog.Logger) Detector {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Strategy {
	case StrategyNone:
		logger.Info("duplicate detection disabled")
		return NullDetector{}
	case StrategyThreshold:
		logger.Info("using threshold duplicate detector", "threshold", cfg.Threshold)
		return NewThresholdDetector(cfg.Threshold)
	}

	if strings.TrimSpace(cfg.LLMAPIKey) != "" {
		if completer != nil {
			d, err := NewLLMDetector(completer, cfg.TopN, logger)
			if err == nil {
				logger.Info("using LLM duplicate detector", "top_n", d.TopN())
				return d
			}
			logger.Warn("LLM duplicate detector unavailable; falling back to threshold", "error", err)
		} else {
			logger.Warn("LLM API key configured but no completion client; falling back to threshold detector")
		}
	} else {
		logger.Info("no LLM API key configured; using threshold duplicate detector", "threshold", cfg.Threshold)
	}
	return NewThresholdDetector(cfg.Threshold)
}
