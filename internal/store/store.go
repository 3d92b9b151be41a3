// Package store is the durable catalog of users, VPS records, orders and
// settings. Each collection persists to its own JSON file; writes go to a
// temp file first and are swapped in with an atomic rename, so readers see
// either the old file or the new one, never a torn write.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/pkg/util"
)

const (
	usersFile    = "users.json"
	vpsFile      = "vps_data.json"
	ordersFile   = "pending_payments.json"
	settingsFile = "settings.json"
)

// FileStore is the concurrency-safe record store. Mutations are atomic
// read-modify-write transactions serialized per collection; collections do
// not block each other. The canonical state lives in memory and is only
// swapped after a successful persist, so a failed write leaves both memory
// and disk at the previous committed state.
type FileStore struct {
	dataDir string

	usersMu    sync.RWMutex
	vpsMu      sync.RWMutex
	ordersMu   sync.RWMutex
	settingsMu sync.RWMutex

	users    map[string]*domain.User
	vps      map[string]*domain.VPS
	orders   map[string]*domain.Order
	settings domain.Settings
}

// Open loads the catalog from dataDir, creating the directory if needed.
func Open(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, util.NewStoreUnavailable(err)
	}
	s := &FileStore{dataDir: dataDir}
	catalog, err := s.Load()
	if err != nil {
		return nil, err
	}
	s.users = catalog.Users
	s.vps = catalog.VPS
	s.orders = catalog.Orders
	s.settings = catalog.Settings
	return s, nil
}

// Load reads the full persisted catalog. Missing files yield empty
// collections; a missing balance field loads as zero, the documented
// backward-compatible default.
func (s *FileStore) Load() (Catalog, error) {
	catalog := NewCatalog()
	if err := readJSON(filepath.Join(s.dataDir, usersFile), &catalog.Users); err != nil {
		return Catalog{}, err
	}
	if err := readJSON(filepath.Join(s.dataDir, vpsFile), &catalog.VPS); err != nil {
		return Catalog{}, err
	}
	if err := readJSON(filepath.Join(s.dataDir, ordersFile), &catalog.Orders); err != nil {
		return Catalog{}, err
	}
	settings := domain.DefaultSettings()
	if err := readJSON(filepath.Join(s.dataDir, settingsFile), &settings); err != nil {
		return Catalog{}, err
	}
	catalog.Settings = settings
	return catalog, nil
}

// Save persists the full catalog. Intended for seeding and tooling; normal
// operation goes through the Mutate methods.
func (s *FileStore) Save(catalog Catalog) error {
	if err := s.writeJSON(usersFile, catalog.Users); err != nil {
		return err
	}
	if err := s.writeJSON(vpsFile, catalog.VPS); err != nil {
		return err
	}
	if err := s.writeJSON(ordersFile, catalog.Orders); err != nil {
		return err
	}
	return s.writeJSON(settingsFile, catalog.Settings)
}

// MutateUsers runs an atomic read-modify-write over the user collection.
func (s *FileStore) MutateUsers(fn func(users map[string]*domain.User) error) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	next := copyUsers(s.users)
	if err := fn(next); err != nil {
		return err
	}
	if err := s.writeJSON(usersFile, next); err != nil {
		return err
	}
	s.users = next
	return nil
}

// MutateVPS runs an atomic read-modify-write over the VPS collection.
func (s *FileStore) MutateVPS(fn func(vps map[string]*domain.VPS) error) error {
	s.vpsMu.Lock()
	defer s.vpsMu.Unlock()

	next := copyVPSMap(s.vps)
	if err := fn(next); err != nil {
		return err
	}
	if err := s.writeJSON(vpsFile, next); err != nil {
		return err
	}
	s.vps = next
	return nil
}

// MutateVPSRecord mutates a single VPS record by container name. The callback
// sees the current committed state, so concurrent writers cannot clobber each
// other with stale copies.
func (s *FileStore) MutateVPSRecord(containerName string, fn func(v *domain.VPS) error) error {
	return s.MutateVPS(func(vps map[string]*domain.VPS) error {
		record, ok := vps[containerName]
		if !ok {
			return util.NewNotFound("vps", map[string]any{"container_name": containerName})
		}
		return fn(record)
	})
}

// MutateOrders runs an atomic read-modify-write over the order collection.
func (s *FileStore) MutateOrders(fn func(orders map[string]*domain.Order) error) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	next := copyOrders(s.orders)
	if err := fn(next); err != nil {
		return err
	}
	if err := s.writeJSON(ordersFile, next); err != nil {
		return err
	}
	s.orders = next
	return nil
}

// MutateSettings runs an atomic read-modify-write over the settings record.
func (s *FileStore) MutateSettings(fn func(settings *domain.Settings) error) error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	next := s.settings
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.writeJSON(settingsFile, next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// GetUser returns a copy of the user, if present.
func (s *FileStore) GetUser(username string) (*domain.User, bool) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	user, ok := s.users[username]
	return copyUser(user), ok
}

// ListUsers returns a copy of all users.
func (s *FileStore) ListUsers() map[string]*domain.User {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	return copyUsers(s.users)
}

// GetVPS returns a copy of the VPS record, if present.
func (s *FileStore) GetVPS(containerName string) (*domain.VPS, bool) {
	s.vpsMu.RLock()
	defer s.vpsMu.RUnlock()
	record, ok := s.vps[containerName]
	return copyVPS(record), ok
}

// ListVPS returns a copy of all VPS records.
func (s *FileStore) ListVPS() map[string]*domain.VPS {
	s.vpsMu.RLock()
	defer s.vpsMu.RUnlock()
	return copyVPSMap(s.vps)
}

// ListVPSByOwner returns copies of the records owned by the given user.
func (s *FileStore) ListVPSByOwner(owner string) []*domain.VPS {
	s.vpsMu.RLock()
	defer s.vpsMu.RUnlock()
	var out []*domain.VPS
	for _, record := range s.vps {
		if record.Owner == owner {
			out = append(out, copyVPS(record))
		}
	}
	return out
}

// GetOrder returns a copy of the order, if present.
func (s *FileStore) GetOrder(id string) (*domain.Order, bool) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	order, ok := s.orders[id]
	return copyOrder(order), ok
}

// ListOrders returns a copy of all pending orders.
func (s *FileStore) ListOrders() map[string]*domain.Order {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	return copyOrders(s.orders)
}

// Ping verifies the backing directory is still reachable.
func (s *FileStore) Ping() error {
	if _, err := os.Stat(s.dataDir); err != nil {
		return util.NewStoreUnavailable(err)
	}
	return nil
}

// Settings returns the current settings record.
func (s *FileStore) Settings() domain.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *FileStore) writeJSON(name string, v any) error {
	path := filepath.Join(s.dataDir, name)
	tempPath := path + ".tmp"

	bytes, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return util.NewStoreUnavailable(err)
	}
	if err := os.WriteFile(tempPath, bytes, 0o644); err != nil {
		return util.NewStoreUnavailable(err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return util.NewStoreUnavailable(err)
	}
	return nil
}

func readJSON(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return util.NewStoreUnavailable(err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return util.NewStoreUnavailable(err)
	}
	return nil
}
