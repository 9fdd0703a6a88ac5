// Package storage persists forecast history and tracks the health of the store.
package storage

import (
	"sync"
	"time"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthData is the last known state of a storage backend
type HealthData struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HealthManager manages storage health status in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]*HealthData
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]*HealthData),
	}
}

// UpdateHealth updates the health status for a storage backend
func (hm *HealthManager) UpdateHealth(storageType string, health *HealthData) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	healthCopy := *health
	hm.health[storageType] = &healthCopy
}

// record stores the outcome of an operation against a backend
func (hm *HealthManager) record(storageType, message string, err error) {
	if hm == nil {
		return
	}
	h := &HealthData{
		LastCheck: time.Now(),
		Status:    StatusHealthy,
		Message:   message,
	}
	if err != nil {
		h.Status = StatusUnhealthy
		h.Error = err.Error()
	}
	hm.UpdateHealth(storageType, h)
}

// GetHealth retrieves the health status for a specific storage backend
func (hm *HealthManager) GetHealth(storageType string) (*HealthData, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	health, exists := hm.health[storageType]
	if !exists {
		return nil, false
	}

	healthCopy := *health
	return &healthCopy, true
}

// IsHealthy checks if a storage backend is healthy
func (hm *HealthManager) IsHealthy(storageType string, maxAge time.Duration) bool {
	health, exists := hm.GetHealth(storageType)
	if !exists {
		return false
	}

	// Check if health data is stale
	if time.Since(health.LastCheck) > maxAge {
		return false
	}

	return health.Status == StatusHealthy
}
