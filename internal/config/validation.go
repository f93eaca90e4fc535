package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for startup-fatal problems.
// Missing API credentials are reported here so the process fails fast
// instead of producing runtime errors mid-conversation.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set the GEMINI_API_KEY environment variable", ErrMissingGeminiKey)
	}
	if c.TavilyAPIKey == "" {
		return fmt.Errorf("%w: set the TAVILY_API_KEY environment variable", ErrMissingTavilyKey)
	}

	name := strings.TrimSpace(c.ModelName)
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidModelName, c.ModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be 0-2)", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxToolRounds < 1 || c.MaxToolRounds > MaxToolRounds {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidToolRounds, c.MaxToolRounds, MaxToolRounds)
	}

	if c.SearchMaxResults < 1 || c.SearchMaxResults > MaxSearchResults {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidMaxResults, c.SearchMaxResults, MaxSearchResults)
	}

	if c.SessionTTLMinutes < 1 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidSessionTTL, c.SessionTTLMinutes)
	}

	return nil
}
