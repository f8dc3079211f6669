package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Manager reads and mutates the profile config file.
type Manager struct {
	mutex sync.Mutex
	path  string
}

// NewManager creates a manager for the config file at path. An empty
// path resolves through the env vars and default candidates.
func NewManager(path string) (*Manager, error) {
	resolved, _, err := ResolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	return &Manager{path: resolved}, nil
}

// Path returns the config file path the manager operates on.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the config file.
func (m *Manager) Load() (*File, error) {
	return Load(m.path)
}

// ListProfiles returns profile names in sorted order.
func (m *Manager) ListProfiles() ([]string, error) {
	file, err := m.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(file.Profiles))
	for name := range file.Profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// GetProfile returns the named profile; an empty name selects the
// default, then the active profile, then "default".
func (m *Manager) GetProfile(name string) (*Profile, error) {
	file, err := m.Load()
	if err != nil {
		return nil, err
	}

	selected := name
	if selected == "" {
		selected = file.DefaultProfile
	}

	if selected == "" {
		selected = file.ActiveProfile
	}

	if selected == "" {
		selected = "default"
	}

	profile, ok := file.Profiles[selected]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", spot.ErrProfileNotFound, selected, m.path)
	}

	return &profile, nil
}

// UpsertProfile creates or replaces a profile. When activate is true,
// or no profile is active yet, the profile becomes the active and
// default one.
func (m *Manager) UpsertProfile(name string, profile *Profile, activate bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	file, err := m.Load()
	if err != nil {
		return err
	}

	if file.Profiles == nil {
		file.Profiles = map[string]Profile{}
	}

	file.Profiles[name] = *profile

	if activate || (file.ActiveProfile == "" && file.DefaultProfile == "") {
		file.ActiveProfile = name
		file.DefaultProfile = name
	}

	return Save(file, m.path)
}

// SetActiveProfile marks an existing profile as active and default.
func (m *Manager) SetActiveProfile(name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	file, err := m.Load()
	if err != nil {
		return err
	}

	if _, ok := file.Profiles[name]; !ok {
		return fmt.Errorf("%w: %q in %s", spot.ErrProfileNotFound, name, m.path)
	}

	file.ActiveProfile = name
	file.DefaultProfile = name

	return Save(file, m.path)
}

// DeleteProfile removes a profile. The active and default markers
// fall back to any remaining profile.
func (m *Manager) DeleteProfile(name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	file, err := m.Load()
	if err != nil {
		return err
	}

	if _, ok := file.Profiles[name]; !ok {
		return fmt.Errorf("%w: %q in %s", spot.ErrProfileNotFound, name, m.path)
	}

	delete(file.Profiles, name)

	if file.ActiveProfile == name {
		file.ActiveProfile = anyProfileName(file.Profiles)
	}

	if file.DefaultProfile == name {
		file.DefaultProfile = file.ActiveProfile
	}

	return Save(file, m.path)
}

func anyProfileName(profiles map[string]Profile) string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}

	if len(names) == 0 {
		return ""
	}

	sort.Strings(names)

	return names[0]
}
