package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/snapship/config.toml"
		}
		return fmt.Errorf("upload.url is required. Set SNAPSHIP_UPLOAD_URL env var or edit %s (create with 'snapship config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Upload.URL)
	if err != nil {
		return fmt.Errorf("upload.url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("upload.url must use http or https, got %q", c.Upload.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("upload.url is missing a host: %q", c.Upload.URL)
	}
	return ensurePositiveMap(map[string]int{
		"upload.timeout_seconds": c.Upload.TimeoutSeconds,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if c.Paths.ArchiveDir == c.Paths.WatchDir {
		return errors.New("paths.archive_dir must differ from paths.watch_dir")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceSeconds < 0 {
		return errors.New("watch.debounce_seconds must be >= 0")
	}
	if len(c.Watch.Extensions) == 0 {
		return errors.New("watch.extensions must list at least one extension")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
