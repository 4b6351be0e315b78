package profiles

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// Cache is the in-memory, device-id-keyed profile lookup shared by the
// Ingestion Gateway and the Alert Evaluator (§4.G/§4.I both call it "the
// same cache"). A miss resolves device → profile_id → profile and
// populates the entry; a device with no profile_id caches a permanent
// miss.
type Cache struct {
	devices  *db.DeviceRepo
	profiles *db.ProfileRepo

	mu       sync.RWMutex
	byDevice map[uuid.UUID]*model.DeviceProfile
}

func NewCache(devices *db.DeviceRepo, profiles *db.ProfileRepo) *Cache {
	return &Cache{devices: devices, profiles: profiles, byDevice: map[uuid.UUID]*model.DeviceProfile{}}
}

// Get returns the device's profile, loading and caching it on first use.
// ok is false when the device has no profile assigned or lookup failed.
func (c *Cache) Get(ctx context.Context, deviceID uuid.UUID) (*model.DeviceProfile, bool) {
	c.mu.RLock()
	p, hit := c.byDevice[deviceID]
	c.mu.RUnlock()
	if hit {
		return p, p != nil
	}

	device, err := c.devices.GetByID(ctx, deviceID)
	if err != nil || device.ProfileID == nil {
		c.store(deviceID, nil)
		return nil, false
	}

	profile, err := c.profiles.GetByID(ctx, *device.ProfileID)
	if err != nil {
		c.store(deviceID, nil)
		return nil, false
	}

	c.store(deviceID, profile)
	return profile, true
}

// Invalidate drops a device's cached entry, forcing the next Get to
// reload it (e.g. after the device is reassigned to a different profile).
func (c *Cache) Invalidate(deviceID uuid.UUID) {
	c.mu.Lock()
	delete(c.byDevice, deviceID)
	c.mu.Unlock()
}

func (c *Cache) store(deviceID uuid.UUID, p *model.DeviceProfile) {
	c.mu.Lock()
	c.byDevice[deviceID] = p
	c.mu.Unlock()
}
