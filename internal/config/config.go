// Package config implements the -f configuration file reader (C10): a
// minimal "key = value" grammar, comments and blank lines ignored.
package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the recognized settings spec.md's CLI surface allows a -f
// file to override.
type Config struct {
	PipelineDepth int
	DialTimeout   time.Duration
	DialRetries   int
	// DialRateLimit caps fresh cluster-node dial attempts per second (C11's
	// reconnect/backoff). 0 means unlimited.
	DialRateLimit float64
}

// Default returns the built-in settings used when no -f file is given.
func Default() Config {
	return Config{
		PipelineDepth: 1000,
		DialTimeout:   5 * time.Second,
		DialRetries:   5,
		DialRateLimit: 5.0,
	}
}

// Load reads a "key = value" file into a Config seeded with Default().
// Lines starting with "#" and blank lines are ignored. Unrecognized keys are
// logged at WARN and otherwise ignored, so a newer config file still loads
// against an older binary.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("config: %s:%d: malformed line %q", path, lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		recognized, err := cfg.set(key, value)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
		}
		if !recognized {
			log.Printf("WARN: config: %s:%d: unrecognized key %q, ignoring", path, lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return cfg, nil
}

// set applies one recognized key, returning false (with a nil error) if the
// key isn't one of this tool's settings.
func (c *Config) set(key, value string) (recognized bool, err error) {
	switch key {
	case "pipeline_depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return true, fmt.Errorf("pipeline_depth: %w", err)
		}
		c.PipelineDepth = n
	case "dial_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return true, fmt.Errorf("dial_timeout: %w", err)
		}
		c.DialTimeout = d
	case "dial_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return true, fmt.Errorf("dial_retries: %w", err)
		}
		c.DialRetries = n
	case "dial_rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return true, fmt.Errorf("dial_rate_limit: %w", err)
		}
		c.DialRateLimit = f
	default:
		return false, nil
	}
	return true, nil
}
