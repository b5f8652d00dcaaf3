package tracking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/api"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/geo"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/tracking"
	mock_tracking "gitlab.ozon.dev/pupkingeorgij/shopsync/internal/tracking/mocks"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newService(t *testing.T) (*tracking.Service, *mock_tracking.MockBackend, *mock_tracking.MockGeolocator, *mock_tracking.MockTokenSource) {
	t.Helper()
	ctrl := gomock.NewController(t)
	backend := mock_tracking.NewMockBackend(ctrl)
	locator := mock_tracking.NewMockGeolocator(ctrl)
	tokens := mock_tracking.NewMockTokenSource(ctrl)
	return tracking.NewService(backend, locator, tokens, zap.NewNop()), backend, locator, tokens
}

func TestReportLocation_Success(t *testing.T) {
	svc, backend, locator, tokens := newService(t)
	ctx := context.Background()

	locator.EXPECT().Current(gomock.Any()).Return(geo.Point{Lat: 51.1, Lng: 71.4}, nil)
	tokens.EXPECT().Token().Return(signedToken(t, jwt.MapClaims{"userId": 3}), nil)
	backend.EXPECT().
		UpdateLocation(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sample geo.LocationSample) error {
			assert.Equal(t, 51.1, sample.Lat)
			assert.Equal(t, 71.4, sample.Lng)
			assert.Equal(t, int64(15), sample.OrderID)
			return nil
		})

	err := svc.ReportLocation(ctx, 15)
	require.NoError(t, err)
}

func TestReportLocation_PermissionDenied(t *testing.T) {
	svc, _, locator, _ := newService(t)

	// No backend expectations: a denied fix must cause zero network calls,
	// and the error must be the permission message, not the generic one.
	locator.EXPECT().Current(gomock.Any()).Return(geo.Point{}, tracking.ErrLocationDenied)

	err := svc.ReportLocation(context.Background(), 15)
	assert.ErrorIs(t, err, tracking.ErrLocationDenied)
	assert.NotErrorIs(t, err, api.ErrBackend)
}

func TestReportLocation_NoGeolocationCapability(t *testing.T) {
	svc, _, locator, _ := newService(t)

	locator.EXPECT().Current(gomock.Any()).Return(geo.Point{}, tracking.ErrNoGeolocation)

	err := svc.ReportLocation(context.Background(), 15)
	assert.ErrorIs(t, err, tracking.ErrNoGeolocation)
}

func TestReportLocation_TokenWithoutIdentityClaims(t *testing.T) {
	svc, _, locator, tokens := newService(t)

	locator.EXPECT().Current(gomock.Any()).Return(geo.Point{Lat: 1, Lng: 2}, nil)
	tokens.EXPECT().Token().Return(signedToken(t, jwt.MapClaims{"role": "shipper"}), nil)

	err := svc.ReportLocation(context.Background(), 15)
	assert.ErrorIs(t, err, tracking.ErrNoIdentity)
}

func TestReportLocation_BackendRejection(t *testing.T) {
	svc, backend, locator, tokens := newService(t)

	locator.EXPECT().Current(gomock.Any()).Return(geo.Point{Lat: 1, Lng: 2}, nil)
	tokens.EXPECT().Token().Return(signedToken(t, jwt.MapClaims{"sub": "3"}), nil)
	backend.EXPECT().UpdateLocation(gomock.Any(), gomock.Any()).Return(api.ErrBackend)

	err := svc.ReportLocation(context.Background(), 15)
	assert.ErrorIs(t, err, api.ErrBackend)
}

func TestLoadTracking(t *testing.T) {
	moderators := []api.ModeratorOrders{
		{UserID: 2, OrderIDs: []int64{7, 8}},
		{UserID: 3, OrderIDs: []int64{15, 16}},
	}

	tests := []struct {
		name         string
		orderID      int64
		setupMocks   func(backend *mock_tracking.MockBackend)
		expectedView *tracking.View
		expectedErr  error
	}{
		{
			name:    "assigned shipper found",
			orderID: 15,
			setupMocks: func(backend *mock_tracking.MockBackend) {
				backend.EXPECT().ModeratorsWithOrders(gomock.Any()).Return(moderators, nil)
				backend.EXPECT().Tracking(gomock.Any(), int64(3), int64(15)).Return(&geo.TrackingResult{
					Distance:         5400,
					UserLocation:     geo.Point{Lat: 51.1, Lng: 71.4},
					ShippingLocation: geo.Point{Lat: 51.2, Lng: 71.5},
				}, nil)
			},
			expectedView: &tracking.View{
				ShipperID: 3,
				Result: geo.TrackingResult{
					Distance:         5400,
					UserLocation:     geo.Point{Lat: 51.1, Lng: 71.4},
					ShippingLocation: geo.Point{Lat: 51.2, Lng: 71.5},
				},
				DistanceText: "5.40 km",
			},
		},
		{
			name:    "order assigned to nobody",
			orderID: 99,
			setupMocks: func(backend *mock_tracking.MockBackend) {
				// The distance lookup must never be issued.
				backend.EXPECT().ModeratorsWithOrders(gomock.Any()).Return(moderators, nil)
			},
			expectedErr: tracking.ErrShipperNotFound,
		},
		{
			name:    "moderator listing fails",
			orderID: 15,
			setupMocks: func(backend *mock_tracking.MockBackend) {
				backend.EXPECT().ModeratorsWithOrders(gomock.Any()).Return(nil, api.ErrBackend)
			},
			expectedErr: api.ErrBackend,
		},
		{
			name:    "distance lookup fails",
			orderID: 15,
			setupMocks: func(backend *mock_tracking.MockBackend) {
				backend.EXPECT().ModeratorsWithOrders(gomock.Any()).Return(moderators, nil)
				backend.EXPECT().Tracking(gomock.Any(), int64(3), int64(15)).Return(nil, api.ErrBackend)
			},
			expectedErr: api.ErrBackend,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, backend, _, _ := newService(t)
			tc.setupMocks(backend)

			view, err := svc.LoadTracking(context.Background(), tc.orderID)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, view)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedView, view)
		})
	}
}

func TestRedeliver_NeedsReason(t *testing.T) {
	svc, _, _, _ := newService(t)

	err := svc.Redeliver(context.Background(), 15, "")
	assert.Error(t, err)
}

func TestMarkShipped(t *testing.T) {
	svc, backend, _, _ := newService(t)

	backend.EXPECT().MarkShipped(gomock.Any(), int64(15)).Return(nil)
	require.NoError(t, svc.MarkShipped(context.Background(), 15))

	expectedErr := errors.New("boom")
	backend.EXPECT().MarkShipped(gomock.Any(), int64(16)).Return(expectedErr)
	assert.ErrorIs(t, svc.MarkShipped(context.Background(), 16), expectedErr)
}
