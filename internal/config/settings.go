package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	shellquote "github.com/kballard/go-shellquote"
	"github.com/micro-editor/json5"
	"github.com/zyedidia/glob"

	"github.com/ellery/scribe/internal/encoding"
)

const (
	// SettingsFileName is the name of the settings file
	SettingsFileName = "settings.json"

	// Version is the settings format written by this build
	Version = "2.0.0"

	DefaultAutoSaveInterval = 10
	DefaultPrintCommand     = "lpr"

	// MaxAutoSaveInterval is one day in minutes
	MaxAutoSaveInterval = 24 * 60
)

// Lockdown disables features for locked-down installs. It is handed to
// each tab explicitly.
type Lockdown struct {
	SaveToDisk bool `json:"savetodisk"`
	Printing   bool `json:"printing"`
}

// Settings holds the editor preferences read from settings.json
type Settings struct {
	Version              string            `json:"version"`
	CreateBackup         bool              `json:"createbackup"`
	AutoSave             bool              `json:"autosave"`
	AutoSaveInterval     int               `json:"autosaveinterval"`
	RestoreCursor        bool              `json:"restorecursor"`
	HighlightCurrentLine bool              `json:"hlcurrentline"`
	Encodings            []string          `json:"encodings"`
	AutoSaveExclude      []string          `json:"autosaveexclude"`
	PrintCommand         string            `json:"printcommand"`
	Lockdown             Lockdown          `json:"lockdown"`
	Colors               map[string]string `json:"colors,omitempty"`
	Bindings             map[string]string `json:"bindings,omitempty"`

	path     string
	excludes []*glob.Glob
}

// DefaultSettings returns the default settings
func DefaultSettings() *Settings {
	return &Settings{
		Version:              Version,
		AutoSaveInterval:     DefaultAutoSaveInterval,
		RestoreCursor:        true,
		HighlightCurrentLine: true,
		PrintCommand:         DefaultPrintCommand,
	}
}

// GetSettingsFilePath returns the path to the settings file
func GetSettingsFilePath() string {
	return filepath.Join(ConfigDir, SettingsFileName)
}

// LoadSettings reads settings from path. A missing file yields defaults.
// Unparseable files are logged and replaced by defaults, matching how the
// editor starts with a broken config rather than refusing to run.
func LoadSettings(path string) *Settings {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("SCRIBE Settings: Failed to read %s: %v", path, err)
		}
		s := DefaultSettings()
		s.path = path
		return s
	}

	s, errs := ValidateSettingsJSON(data)
	for _, e := range errs {
		log.Printf("SCRIBE Settings: %v", e)
	}
	if s == nil {
		s = DefaultSettings()
	}
	s.path = path
	s.compileExcludes()
	return s
}

// Save writes the settings back to the file they were loaded from
func (s *Settings) Save() error {
	path := s.path
	if path == "" {
		path = GetSettingsFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("SCRIBE Settings: Failed to create config dir: %v", err)
		return err
	}

	s.Version = Version
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		log.Printf("SCRIBE Settings: Failed to write %s: %v", path, err)
		return err
	}
	s.path = path
	return nil
}

// ValidationError represents a settings validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateSettingsJSON parses settings (comments and trailing commas
// allowed), migrates old formats and validates every field. Fields that
// fail validation are reset to their defaults in the returned settings.
func ValidateSettingsJSON(data []byte) (*Settings, []ValidationError) {
	var errors []ValidationError

	settings := DefaultSettings()
	settings.Version = ""
	if err := json5.Unmarshal(data, settings); err != nil {
		errors = append(errors, ValidationError{
			Field:   "json",
			Message: "Invalid JSON: " + err.Error(),
		})
		return nil, errors
	}

	if err := migrate(settings); err != nil {
		errors = append(errors, ValidationError{Field: "version", Message: err.Error()})
	}
	errors = append(errors, validateSettings(settings)...)
	settings.compileExcludes()

	if len(errors) > 0 {
		return settings, errors
	}
	return settings, nil
}

// migrate upgrades settings written by older builds. Before 2.0 the
// auto-save interval was stored in seconds.
func migrate(s *Settings) error {
	current := semver.MustParse(Version)
	if s.Version == "" {
		s.Version = Version
		return nil
	}
	v, err := semver.ParseTolerant(s.Version)
	if err != nil {
		s.Version = Version
		return fmt.Errorf("unparseable version %q", s.Version)
	}
	if v.GT(current) {
		log.Printf("SCRIBE Settings: settings.json is from a newer version (%s)", v)
		return nil
	}
	if v.Major < 2 && s.AutoSaveInterval > 0 {
		s.AutoSaveInterval = (s.AutoSaveInterval + 59) / 60
		log.Printf("SCRIBE Settings: Migrated autosaveinterval to %d minutes", s.AutoSaveInterval)
	}
	s.Version = Version
	return nil
}

func validateSettings(s *Settings) []ValidationError {
	var errors []ValidationError

	if s.AutoSaveInterval < 1 {
		errors = append(errors, ValidationError{
			Field:   "autosaveinterval",
			Message: "must be at least 1 minute",
		})
		s.AutoSaveInterval = DefaultAutoSaveInterval
	} else if s.AutoSaveInterval > MaxAutoSaveInterval {
		errors = append(errors, ValidationError{
			Field:   "autosaveinterval",
			Message: fmt.Sprintf("must be <= %d minutes", MaxAutoSaveInterval),
		})
		s.AutoSaveInterval = MaxAutoSaveInterval
	}

	var encs []string
	for _, cs := range s.Encodings {
		if _, ok := encoding.Get(cs); !ok {
			errors = append(errors, ValidationError{
				Field:   "encodings",
				Message: fmt.Sprintf("unknown charset %q", cs),
			})
			continue
		}
		encs = append(encs, cs)
	}
	s.Encodings = encs

	var patterns []string
	for _, p := range s.AutoSaveExclude {
		if _, err := glob.Compile(p); err != nil {
			errors = append(errors, ValidationError{
				Field:   "autosaveexclude",
				Message: fmt.Sprintf("bad pattern %q: %v", p, err),
			})
			continue
		}
		patterns = append(patterns, p)
	}
	s.AutoSaveExclude = patterns

	if strings.TrimSpace(s.PrintCommand) == "" {
		s.PrintCommand = DefaultPrintCommand
	} else if _, err := shellquote.Split(s.PrintCommand); err != nil {
		errors = append(errors, ValidationError{
			Field:   "printcommand",
			Message: err.Error(),
		})
		s.PrintCommand = DefaultPrintCommand
	}

	for group, value := range s.Colors {
		if !ValidStyle(value) {
			errors = append(errors, ValidationError{
				Field:   "colors." + group,
				Message: fmt.Sprintf("invalid style %q", value),
			})
			delete(s.Colors, group)
		}
	}

	return errors
}

func (s *Settings) compileExcludes() {
	s.excludes = s.excludes[:0]
	for _, p := range s.AutoSaveExclude {
		if g, err := glob.Compile(p); err == nil {
			s.excludes = append(s.excludes, g)
		}
	}
}

// CreateBackups reports whether manual saves keep a backup copy
func (s *Settings) CreateBackups() bool { return s.CreateBackup }

// AutoSaveDefaults returns the auto-save preference new tabs start with
func (s *Settings) AutoSaveDefaults() (bool, int) {
	return s.AutoSave, s.AutoSaveInterval
}

// RestoreCursorPosition reports whether loads jump to the remembered offset
func (s *Settings) RestoreCursorPosition() bool { return s.RestoreCursor }

// HighlightLine reports whether the current line is highlighted
func (s *Settings) HighlightLine() bool { return s.HighlightCurrentLine }

// EncodingCandidates returns the configured candidate charsets
func (s *Settings) EncodingCandidates() []string {
	return append([]string(nil), s.Encodings...)
}

// AutoSaveExcluded reports whether path matches an autosaveexclude glob.
// Patterns are matched against both the full path and the base name.
func (s *Settings) AutoSaveExcluded(path string) bool {
	if path == "" {
		return false
	}
	base := filepath.Base(path)
	for _, g := range s.excludes {
		if g.MatchString(path) || g.MatchString(base) {
			return true
		}
	}
	return false
}

// AddEncodings prepends charsets to the candidate list, skipping ones
// already present, and saves the settings
func (s *Settings) AddEncodings(charsets ...string) error {
	list := encoding.Charsets(encoding.AddCandidates(encoding.FromCharsets(s.Encodings), encoding.FromCharsets(charsets)))
	s.Encodings = list
	return s.Save()
}

// RemoveEncodings drops charsets from the candidate list and saves
func (s *Settings) RemoveEncodings(charsets ...string) error {
	list := encoding.Charsets(encoding.RemoveCandidates(encoding.FromCharsets(s.Encodings), encoding.FromCharsets(charsets)))
	s.Encodings = list
	return s.Save()
}
