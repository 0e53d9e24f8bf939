// internal/room/manager.go
package room

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/menupick/internal/cache"
	"github.com/jason-s-yu/menupick/internal/database"
	"github.com/jason-s-yu/menupick/internal/models"
	"github.com/jason-s-yu/menupick/internal/restaurant"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// StateStore is the part of the ephemeral room store the manager needs.
type StateStore interface {
	SeedRoom(ctx context.Context, roomCode string, restaurants []models.Restaurant) error
	GetRestaurantList(ctx context.Context, roomCode string) ([]models.Restaurant, error)
}

// Manager creates rooms and decides whether a room code still points at a live room.
type Manager struct {
	provider    restaurant.Provider
	rooms       database.RoomStore
	state       StateStore
	logger      *logrus.Logger
	concurrency int

	// geofence is swappable for tests; production uses InKorea.
	geofence func(lat, lng float64) bool
	newCode  func() string
}

// NewManager wires a lifecycle manager. concurrency caps parallel detail lookups.
func NewManager(provider restaurant.Provider, rooms database.RoomStore, state StateStore, logger *logrus.Logger, concurrency int) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Manager{
		provider:    provider,
		rooms:       rooms,
		state:       state,
		logger:      logger,
		concurrency: concurrency,
		geofence:    InKorea,
		newCode:     uuid.NewString,
	}
}

// CreateRoom builds a room anchored at (lat, lng) with every restaurant within radius
// metres and returns its code. The durable record is written before the ephemeral
// seed; if seeding fails the record is left behind for ValidRoom to retire.
func (m *Manager) CreateRoom(ctx context.Context, lat, lng float64, radius int) (string, error) {
	if !m.geofence(lat, lng) {
		return "", ErrLocationOutOfBounds
	}

	roomCode := m.newCode()
	log := m.logger.WithFields(logrus.Fields{"roomCode": roomCode, "lat": lat, "lng": lng, "radius": radius})

	restaurants, err := m.fetchRestaurants(ctx, lat, lng, radius)
	if err != nil {
		log.WithError(err).Error("room creation: restaurant lookup failed")
		return "", ErrRoomCreationFailed
	}

	if err := m.rooms.Create(ctx, models.Room{RoomCode: roomCode, Lat: lat, Lng: lng}); err != nil {
		log.WithError(err).Error("room creation: durable record write failed")
		return "", ErrRoomCreationFailed
	}

	if err := m.state.SeedRoom(ctx, roomCode, restaurants); err != nil {
		log.WithError(err).Error("room creation: ephemeral seed failed")
		return "", ErrRoomCreationFailed
	}

	log.WithField("restaurants", len(restaurants)).Info("room created")
	return roomCode, nil
}

// fetchRestaurants discovers restaurants and enriches each one concurrently.
// Detail fields win over discovery fields. The result is ordered by distance.
func (m *Manager) fetchRestaurants(ctx context.Context, lat, lng float64, radius int) ([]models.Restaurant, error) {
	coarse, err := m.provider.Discover(ctx, lat, lng, radius)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(coarse))
	for id := range coarse {
		ids = append(ids, id)
	}
	details := make([]models.Restaurant, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, id := range ids {
		c := coarse[id]
		g.Go(func() error {
			d, err := m.provider.Detail(gctx, id, c.Address, c.Name, c.Lat, c.Lng)
			if err != nil {
				return err
			}
			d.ID = id
			details[i] = models.MergeRestaurant(c, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(details, func(i, j int) bool {
		if details[i].Distance != details[j].Distance {
			return details[i].Distance < details[j].Distance
		}
		return details[i].ID < details[j].ID
	})
	return details, nil
}

// ValidRoom reports whether roomCode denotes a live room. A room whose durable
// record is live but whose ephemeral state has vanished is soft-deleted on the spot.
// Storage failures return ErrRoomLookupFailed, which is not the same as false.
func (m *Manager) ValidRoom(ctx context.Context, roomCode string) (bool, error) {
	log := m.logger.WithField("roomCode", roomCode)

	room, err := m.rooms.FindByCode(ctx, roomCode)
	if errors.Is(err, database.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		log.WithError(err).Error("room lookup: durable record read failed")
		return false, ErrRoomLookupFailed
	}
	if room.Deleted() {
		return false, nil
	}

	_, err = m.state.GetRestaurantList(ctx, roomCode)
	if errors.Is(err, cache.ErrNotFound) {
		if err := m.rooms.SoftDelete(ctx, roomCode); err != nil {
			log.WithError(err).Error("room lookup: soft delete of expired room failed")
			return false, ErrRoomLookupFailed
		}
		log.Info("room expired, marked deleted")
		return false, nil
	}
	if err != nil {
		log.WithError(err).Error("room lookup: ephemeral state read failed")
		return false, ErrRoomLookupFailed
	}
	return true, nil
}
