// Package loader reads raw bid inputs from disk.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
)

// ErrInputNotFound is returned when a required input file is missing
var ErrInputNotFound = errors.New("input file not found")

// extensions are probed in this order for each input
var extensions = []string{".json", ".yaml", ".yml"}

// FileSource loads capacities, roster and preferences from a data directory.
//
// Each input lives in its own file named capacities, roster or preferences with a .json,
// .yaml or .yml extension. If Path names a regular file instead of a directory, it is read
// as a single document with top-level capacities, roster and preferences keys.
type FileSource struct {
	Path   string
	Logger *zap.Logger
}

// NewFileSource creates a FileSource rooted at path
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{Path: path, Logger: logger}
}

// LoadInputs reads all three inputs. Capacities and roster are required; a missing
// preferences file means nobody submitted a bid.
func (s *FileSource) LoadInputs(ctx context.Context) (*normalizer.RawInputs, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", s.Path, err)
	}

	if !info.IsDir() {
		var raw normalizer.RawInputs
		if err := decodeFile(s.Path, &raw); err != nil {
			return nil, err
		}
		s.Logger.Debug("Loaded input bundle", zap.String("path", s.Path))
		return &raw, nil
	}

	var raw normalizer.RawInputs

	if err := s.load(ctx, "capacities", &raw.Capacities, true); err != nil {
		return nil, err
	}
	if err := s.load(ctx, "roster", &raw.Roster, true); err != nil {
		return nil, err
	}
	if err := s.load(ctx, "preferences", &raw.Preferences, false); err != nil {
		return nil, err
	}

	s.Logger.Debug("Loaded inputs",
		zap.String("dir", s.Path),
		zap.Int("capacities", raw.Capacities.Len()),
		zap.Int("pilots", len(raw.Roster.Pilots)))

	return &raw, nil
}

func (s *FileSource) load(ctx context.Context, name string, dst any, required bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := FindInput(s.Path, name)
	if err != nil {
		if !required && errors.Is(err, ErrInputNotFound) {
			s.Logger.Warn("Optional input missing, treating as empty", zap.String("input", name))
			return nil
		}
		return err
	}

	s.Logger.Debug("Reading input", zap.String("input", name), zap.String("path", path))
	return decodeFile(path, dst)
}

// FindInput returns the first existing file for name under dir, trying each known extension
func FindInput(dir, name string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrInputNotFound, name, dir)
}

func decodeFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return nil
}
