//go:generate mockgen -source ./service.go -destination=./mocks/service.go -package=mock_tracking
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/api"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/auth"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/geo"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/metrics"
)

var (
	// ErrNoGeolocation: the device has no way to produce a fix at all.
	ErrNoGeolocation = errors.New("geolocation is not available on this device")
	// ErrLocationDenied: the user declined the location permission.
	ErrLocationDenied = errors.New("location permission denied")
	// ErrNoFix: the device has geolocation but could not produce a fix.
	ErrNoFix = errors.New("could not get a location fix")
	// ErrNoIdentity: the stored token carries no recoverable user id.
	ErrNoIdentity = errors.New("could not determine identity")
	// ErrShipperNotFound: no moderator has this order in its assigned set.
	ErrShipperNotFound = errors.New("no shipper is assigned to this order")
)

// Backend is the slice of the REST client the tracking flow needs.
type Backend interface {
	ModeratorsWithOrders(ctx context.Context) ([]api.ModeratorOrders, error)
	Tracking(ctx context.Context, userID, orderID int64) (*geo.TrackingResult, error)
	UpdateLocation(ctx context.Context, sample geo.LocationSample) error
	MarkShipped(ctx context.Context, orderID int64) error
	Redeliver(ctx context.Context, orderID int64, reason string) error
}

// Geolocator produces one-shot device fixes.
type Geolocator interface {
	Current(ctx context.Context) (geo.Point, error)
}

// TokenSource supplies the identity token the report flow decodes.
type TokenSource interface {
	Token() (string, error)
}

// View is what the order screen renders after a successful tracking load.
type View struct {
	ShipperID    int64
	Result       geo.TrackingResult
	DistanceText string
}

type Service struct {
	backend Backend
	locator Geolocator
	tokens  TokenSource
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(backend Backend, locator Geolocator, tokens TokenSource, logger *zap.Logger) *Service {
	return &Service{
		backend: backend,
		locator: locator,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

// ReportLocation takes one device fix and reports it for an order. Every
// pre-flight failure surfaces before any network call; the write itself is a
// single shot with no automatic retry.
func (s *Service) ReportLocation(ctx context.Context, orderID int64) error {
	point, err := s.locator.Current(ctx)
	if err != nil {
		metrics.LocationReportsTotal.WithLabelValues("no_fix").Inc()
		return err
	}

	userID, err := s.identity()
	if err != nil {
		metrics.LocationReportsTotal.WithLabelValues("no_identity").Inc()
		return err
	}

	sample := geo.LocationSample{
		Point:      point,
		OrderID:    orderID,
		ObservedAt: s.now(),
	}

	s.logger.Info("Reporting location",
		zap.Int64("userID", userID),
		zap.Int64("orderID", orderID),
		zap.Float64("lat", point.Lat),
		zap.Float64("lng", point.Lng),
	)

	if err := s.backend.UpdateLocation(ctx, sample); err != nil {
		metrics.LocationReportsTotal.WithLabelValues("backend_error").Inc()
		return err
	}

	metrics.LocationReportsTotal.WithLabelValues("ok").Inc()
	return nil
}

// identity recovers the acting user id from the stored token. The update
// endpoint derives the user from the bearer token server-side; the client
// still refuses to report when it cannot tell who it is acting as.
func (s *Service) identity() (int64, error) {
	token, err := s.tokens.Token()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	userID, err := auth.UserIDFromToken(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	return userID, nil
}

// LoadTracking resolves the shipper assigned to an order and fetches the
// distance payload for the pair. The two lookups are strictly sequential:
// without an assigned shipper the second request is never issued.
func (s *Service) LoadTracking(ctx context.Context, orderID int64) (*View, error) {
	moderators, err := s.backend.ModeratorsWithOrders(ctx)
	if err != nil {
		return nil, err
	}

	shipperID, found := assignedShipper(moderators, orderID)
	if !found {
		return nil, ErrShipperNotFound
	}

	result, err := s.backend.Tracking(ctx, shipperID, orderID)
	if err != nil {
		return nil, err
	}

	return &View{
		ShipperID:    shipperID,
		Result:       *result,
		DistanceText: geo.FormatDistance(result.Distance),
	}, nil
}

func (s *Service) MarkShipped(ctx context.Context, orderID int64) error {
	return s.backend.MarkShipped(ctx, orderID)
}

func (s *Service) Redeliver(ctx context.Context, orderID int64, reason string) error {
	if reason == "" {
		return errors.New("redelivery needs a reason")
	}
	return s.backend.Redeliver(ctx, orderID, reason)
}

func assignedShipper(moderators []api.ModeratorOrders, orderID int64) (int64, bool) {
	for _, moderator := range moderators {
		for _, id := range moderator.OrderIDs {
			if id == orderID {
				return moderator.UserID, true
			}
		}
	}
	return 0, false
}
