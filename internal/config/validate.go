package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCopy(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DestinationRoot == "" {
		return errors.New("paths.destination_root must be set")
	}
	return nil
}

func (c *Config) validateCopy() error {
	if c.Copy.ProgressIntervalMS < 10 {
		return fmt.Errorf("copy.progress_interval_ms must be at least 10, got %d", c.Copy.ProgressIntervalMS)
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.MaxDepth < 1 {
		return fmt.Errorf("scanner.max_depth must be at least 1, got %d", c.Scanner.MaxDepth)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
