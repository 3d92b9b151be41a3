package store

import "github.com/spec-kit/vps-service/internal/domain"

// Catalog aggregates every persisted record set. VPS records are keyed by
// container name, which is unique across all owners.
type Catalog struct {
	Users    map[string]*domain.User
	VPS      map[string]*domain.VPS
	Orders   map[string]*domain.Order
	Settings domain.Settings
}

// NewCatalog returns an empty catalog with defaults applied.
func NewCatalog() Catalog {
	return Catalog{
		Users:    make(map[string]*domain.User),
		VPS:      make(map[string]*domain.VPS),
		Orders:   make(map[string]*domain.Order),
		Settings: domain.DefaultSettings(),
	}
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func copyVPS(v *domain.VPS) *domain.VPS {
	if v == nil {
		return nil
	}
	cp := *v
	cp.SuspensionHistory = append([]domain.SuspensionEntry(nil), v.SuspensionHistory...)
	cp.SharedWith = append([]string(nil), v.SharedWith...)
	return &cp
}

func copyOrder(o *domain.Order) *domain.Order {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

func copyUsers(m map[string]*domain.User) map[string]*domain.User {
	out := make(map[string]*domain.User, len(m))
	for k, v := range m {
		out[k] = copyUser(v)
	}
	return out
}

func copyVPSMap(m map[string]*domain.VPS) map[string]*domain.VPS {
	out := make(map[string]*domain.VPS, len(m))
	for k, v := range m {
		out[k] = copyVPS(v)
	}
	return out
}

func copyOrders(m map[string]*domain.Order) map[string]*domain.Order {
	out := make(map[string]*domain.Order, len(m))
	for k, v := range m {
		out[k] = copyOrder(v)
	}
	return out
}
