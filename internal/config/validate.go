package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOpenLibrary(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if bind := c.Paths.APIBind; bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("paths.api_bind %q is not a host:port value: %w", bind, err)
		}
	}
	return nil
}

func (c *Config) validateOpenLibrary() error {
	if !strings.HasPrefix(c.OpenLibrary.BaseURL, "http://") && !strings.HasPrefix(c.OpenLibrary.BaseURL, "https://") {
		return fmt.Errorf("openlibrary.base_url %q must be an http(s) URL", c.OpenLibrary.BaseURL)
	}
	return nil
}

func (c *Config) validateScanner() error {
	for _, ext := range c.Scanner.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("scanner.extensions entry %q must be a dotted extension", ext)
		}
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.Enabled && c.Auth.SessionTTLHours <= 0 {
		return errors.New("auth.session_ttl_hours must be positive when auth.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}
