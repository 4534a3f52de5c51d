package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/repository"
)

var platforms = map[string]bool{"": true, "android": true, "ios": true, "web": true}

// DeviceService manages push registrations
type DeviceService struct {
	deviceRepo *repository.DeviceRepository
}

func NewDeviceService(deviceRepo *repository.DeviceRepository) *DeviceService {
	return &DeviceService{deviceRepo: deviceRepo}
}

// Register stores token for userID. A token already known for another user
// is moved to userID.
func (s *DeviceService) Register(userID uuid.UUID, token, platform string) error {
	token = strings.TrimSpace(token)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if token == "" {
		return validationError("token is required")
	}
	if !platforms[platform] {
		return validationError("platform must be android, ios or web")
	}
	if err := s.deviceRepo.Upsert(userID, token, platform); err != nil {
		return persistenceError("register device", err)
	}
	return nil
}

// Unregister removes one of the user's tokens
func (s *DeviceService) Unregister(userID uuid.UUID, token string) error {
	n, err := s.deviceRepo.Delete(userID, strings.TrimSpace(token))
	if err != nil {
		return persistenceError("unregister device", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
