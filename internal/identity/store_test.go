package identity

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/data/zoothing")

	want := DeviceIdentity{Name: "Fido", SSID: "home", Passphrase: "secret", APPassphrase: "longenough"}
	if err := Save(store, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := Load(store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found {
		t.Fatal("Load() should find the saved record")
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	// Temporary file must be gone after the rename
	if exists, _ := afero.Exists(fs, "/data/zoothing/zooset.json.tmp"); exists {
		t.Error("temporary file left behind after Write()")
	}

	info, err := fs.Stat("/data/zoothing/zooset.json")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("record permissions = %v, want 0600", info.Mode().Perm())
	}
}

func TestFileStoreMissingRecord(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/empty")

	got, found, err := Load(store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if found {
		t.Error("Load() should report found=false for a missing record")
	}
	if got != Default() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestFileStoreCorruptRecord(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/zooset.json", []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(NewFileStore(fs, "/data"))
	if err == nil {
		t.Error("Load() should fail on a corrupt record")
	}
}

func TestFileStoreRejectsBadKeys(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/data")

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		if err := store.Write(key, "x"); err == nil {
			t.Errorf("Write(%q) should fail", key)
		}
	}
}

func TestFileStoreReadOnlyFilesystem(t *testing.T) {
	store := NewFileStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data")

	if err := Save(store, Default()); err == nil {
		t.Error("Save() on a read-only filesystem should fail")
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoothing.db")

	store, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}

	if _, found, err := Load(store); err != nil || found {
		t.Fatalf("Load() on empty db = found %v, err %v; want not found", found, err)
	}

	want := DeviceIdentity{Name: "Rex", SSID: "office", Passphrase: "hunter22"}
	if err := Save(store, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen to prove the record survived
	store, err = OpenBoltStore(path)
	if err != nil {
		t.Fatalf("OpenBoltStore() reopen error = %v", err)
	}
	defer store.Close()

	got, found, err := Load(store)
	if err != nil || !found {
		t.Fatalf("Load() after reopen = found %v, err %v", found, err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

type failingStore struct{}

func (failingStore) Write(string, any) error            { return errors.New("flash full") }
func (failingStore) ReadJSON(string, any) (bool, error) { return false, errors.New("flash dead") }

func TestLoadSaveWrapErrors(t *testing.T) {
	if err := Save(failingStore{}, Default()); err == nil || err.Error() != "failed to write settings: flash full" {
		t.Errorf("Save() error = %v", err)
	}

	id, found, err := Load(failingStore{})
	if err == nil || found {
		t.Errorf("Load() = found %v, err %v; want error", found, err)
	}
	if id != Default() {
		t.Errorf("Load() on error should return defaults, got %+v", id)
	}
}

func TestLoadPartialRecordKeepsDefaults(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   DeviceIdentity
	}{
		{
			name:   "no name",
			record: `{"ssid":"home","pass":"secret"}`,
			want:   DeviceIdentity{Name: DefaultName, SSID: "home", Passphrase: "secret"},
		},
		{
			name:   "empty name",
			record: `{"name":"","ssid":"home","pass":"secret"}`,
			want:   DeviceIdentity{Name: DefaultName, SSID: "home", Passphrase: "secret"},
		},
		{
			name:   "name only",
			record: `{"name":"Fido"}`,
			want:   DeviceIdentity{Name: "Fido", SSID: DefaultSSID, Passphrase: DefaultPassphrase},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/store/zooset.json", []byte(tt.record), 0600); err != nil {
				t.Fatal(err)
			}

			got, found, err := Load(NewFileStore(fs, "/store"))
			if err != nil || !found {
				t.Fatalf("Load() found=%v err=%v", found, err)
			}
			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
			if tt.want.Name == DefaultName && got.Configured() {
				t.Error("a record without a name must stay unconfigured")
			}
		})
	}
}
