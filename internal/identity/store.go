package identity

import "fmt"

// Store is key-value blob storage for settings records.
type Store interface {
	// Write stores record under key, replacing any previous value.
	Write(key string, record any) error
	// ReadJSON decodes the record stored under key into out. found is false
	// when nothing is stored under key.
	ReadJSON(key string, out any) (found bool, err error)
}

// Load reads the device identity from store. A missing record yields the
// default identity with found=false; fields missing from a stored record keep
// their defaults.
func Load(store Store) (id DeviceIdentity, found bool, err error) {
	id = Default()

	stored := Default()
	found, err = store.ReadJSON(SettingsKey, &stored)
	if err != nil {
		return id, false, fmt.Errorf("failed to read settings: %w", err)
	}
	if !found {
		return id, false, nil
	}
	if stored.Name == "" {
		stored.Name = DefaultName
	}
	return stored, true, nil
}

// Save writes the device identity to store.
func Save(store Store, id DeviceIdentity) error {
	if err := store.Write(SettingsKey, id); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
