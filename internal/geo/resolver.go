package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"

	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/logger"
)

const cacheKeyPrefix = "geolocation:"

// Location is a resolved country/city pair. Either field may be absent when
// the address is private or no source could resolve it.
type Location struct {
	Country *string `json:"country"`
	City    *string `json:"city"`
}

// Resolver resolves addresses to locations with long-lived positive caching.
// Lookup order is the optional local GeoLite2 database, then the HTTP
// provider. Resolution never fails the caller: any provider problem degrades
// to an empty Location.
type Resolver struct {
	cache       cache.Cache
	ttl         time.Duration
	providerURL string
	client      *http.Client
	geolite     *geoip2.Reader
	group       singleflight.Group
}

// Options configures a Resolver.
type Options struct {
	ProviderURL string
	Timeout     time.Duration
	CacheTTL    time.Duration
	// GeoLiteDBPath optionally points at a GeoLite2-City mmdb file.
	GeoLiteDBPath string
}

// NewResolver builds a Resolver over the shared cache. A configured GeoLite2
// database that fails to open is logged and skipped rather than fatal.
func NewResolver(c cache.Cache, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}

	r := &Resolver{
		cache:       c,
		ttl:         opts.CacheTTL,
		providerURL: opts.ProviderURL,
		client:      &http.Client{Timeout: opts.Timeout},
	}

	if opts.GeoLiteDBPath != "" {
		reader, err := geoip2.Open(opts.GeoLiteDBPath)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"path":  opts.GeoLiteDBPath,
				"error": err.Error(),
			}).Warn("failed to open GeoLite2 database, falling back to HTTP provider")
		} else {
			r.geolite = reader
		}
	}

	return r
}

// Close releases the GeoLite2 reader if one is open.
func (r *Resolver) Close() error {
	if r.geolite != nil {
		return r.geolite.Close()
	}
	return nil
}

// Resolve returns the location for ipAddress. Private and loopback addresses
// short-circuit to an empty Location with no network call and no cache entry.
func (r *Resolver) Resolve(ctx context.Context, ipAddress string) Location {
	ip := net.ParseIP(ipAddress)
	if ip == nil || isLocal(ip) {
		return Location{}
	}

	key := cacheKeyPrefix + ipAddress
	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		var loc Location
		if err := json.Unmarshal([]byte(raw), &loc); err == nil {
			return loc
		}
	} else if err != nil {
		logger.WithFields(map[string]interface{}{"ip": ipAddress, "error": err.Error()}).
			Warn("geolocation cache read failed")
	}

	// Collapse concurrent lookups for the same address into one provider call.
	result, _, _ := r.group.Do(ipAddress, func() (interface{}, error) {
		loc, err := r.lookup(ctx, ip, ipAddress)
		if err != nil {
			logger.WithFields(map[string]interface{}{"ip": ipAddress, "error": err.Error()}).
				Error("geolocation lookup failed")
			return Location{}, nil
		}

		if raw, err := json.Marshal(loc); err == nil {
			if err := r.cache.Set(ctx, key, string(raw), r.ttl); err != nil {
				logger.WithFields(map[string]interface{}{"ip": ipAddress, "error": err.Error()}).
					Warn("geolocation cache write failed")
			}
		}
		return loc, nil
	})

	return result.(Location)
}

func (r *Resolver) lookup(ctx context.Context, ip net.IP, ipAddress string) (Location, error) {
	if r.geolite != nil {
		loc, err := r.lookupGeoLite(ip)
		if err == nil {
			return loc, nil
		}
		logger.WithFields(map[string]interface{}{"ip": ipAddress, "error": err.Error()}).
			Debug("GeoLite2 lookup failed, falling back to HTTP provider")
	}

	return r.lookupProvider(ctx, ipAddress)
}

func (r *Resolver) lookupGeoLite(ip net.IP) (Location, error) {
	record, err := r.geolite.City(ip)
	if err != nil {
		return Location{}, err
	}

	country := record.Country.Names["en"]
	if country == "" {
		return Location{}, fmt.Errorf("GeoLite2 has no country for %s", ip)
	}

	loc := Location{Country: &country}
	if city := record.City.Names["en"]; city != "" {
		loc.City = &city
	}
	return loc, nil
}

func (r *Resolver) lookupProvider(ctx context.Context, ipAddress string) (Location, error) {
	url := fmt.Sprintf("%s/%s/json/", r.providerURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var body struct {
		CountryName string `json:"country_name"`
		City        string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geolocation response: %w", err)
	}

	var loc Location
	if body.CountryName != "" {
		loc.Country = &body.CountryName
	}
	if body.City != "" {
		loc.City = &body.City
	}
	return loc, nil
}

// isLocal reports whether ip is in a loopback, private, link-local or
// unspecified range, none of which are worth a provider call.
func isLocal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
