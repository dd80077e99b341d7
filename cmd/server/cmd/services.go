package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
	"github.com/placxborcx/Onboarding-MainPage/internal/email"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding/mapbox"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding/nominatim"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking/melbourne"
	"github.com/placxborcx/Onboarding-MainPage/internal/signup"
	"github.com/placxborcx/Onboarding-MainPage/internal/storage"
)

// services holds the domain services built from configuration.
type services struct {
	backends  *storage.Backends
	geocoding *geocoding.GeocodingService
	parking   *parking.Service
	signups   *signup.Service
}

func buildServices(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*services, error) {
	backends, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		backends.Close()
		return nil, err
	}

	geocoder := geocoding.NewGeocodingService(provider, backends.Cache, logger, geocoding.Options{
		Reference:   cfg.Suggest.Reference(),
		MaxRadiusKm: cfg.Suggest.MaxRadiusKm,
		Limit:       cfg.Suggest.Limit,
		CacheTTL:    cfg.Cache.TTL,
	})

	mailer, err := email.NewService(cfg.Email, cfg.Server.BaseURL, logger)
	if err != nil {
		backends.Close()
		return nil, err
	}

	source := melbourne.NewClient(cfg.Parking.BaseURL,
		melbourne.WithAPIKey(cfg.Parking.APIKey),
		melbourne.WithTimeout(cfg.Parking.Timeout),
		melbourne.WithPaging(cfg.Parking.PageLimit, cfg.Parking.MaxPages),
	)

	return &services{
		backends:  backends,
		geocoding: geocoder,
		parking:   parking.NewService(source, geocoder, logger, float64(cfg.Parking.RadiusMeters)),
		signups:   signup.NewService(backends.Signups, logger, signup.WithNotifier(mailer)),
	}, nil
}

func newProvider(cfg config.Config) (geocoding.Provider, error) {
	gc := cfg.Geocoder
	switch gc.Provider {
	case config.ProviderNominatim:
		client := nominatim.NewClient(gc.NominatimURL, gc.Email,
			nominatim.WithRateLimit(gc.RateLimit),
			nominatim.WithTimeout(gc.Timeout),
		)
		return geocoding.NewNominatimProvider(client, gc.CountryCodes, cfg.Suggest.Reference(), cfg.Suggest.MaxRadiusKm), nil
	case config.ProviderMapbox:
		client := mapbox.NewClient(gc.MapboxURL, gc.MapboxToken,
			mapbox.WithRateLimit(gc.RateLimit),
			mapbox.WithTimeout(gc.Timeout),
		)
		return geocoding.NewMapboxProvider(client, gc.CountryCodes, cfg.Suggest.Reference()), nil
	default:
		return nil, fmt.Errorf("unsupported geocoder provider %q", gc.Provider)
	}
}

// Close waits for pending welcome emails, then releases the backends.
func (s *services) Close() {
	s.signups.Wait()
	s.backends.Close()
}
