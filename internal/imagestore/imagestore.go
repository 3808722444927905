// Package imagestore resolves image references to fetchable URLs.
//
// A reference is either a full URL (passed through), a numeric record ID
// (resolved against the image tables), or an opaque storage object key
// (turned into a public URL under the configured storage base URL). Image
// records themselves are owned by the storage subsystem; this package only
// resolves them.
package imagestore

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
)

// Locator resolves maintenance and baseline image references.
type Locator struct {
	ds      datastore.Interface
	baseURL string
	cache   *cache.Cache
	log     *slog.Logger
}

// Resolved is the result of a successful reference resolution.
type Resolved struct {
	URL     string
	ImageID *uint // nil when the reference was a URL or storage key
}

// New creates a Locator backed by the given store and storage settings.
func New(ds datastore.Interface, settings *conf.Settings) *Locator {
	ttl := settings.Storage.URLCacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	logger := logging.ForService("imagestore")
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		ds:      ds,
		baseURL: strings.TrimRight(settings.Storage.PublicBaseURL, "/"),
		cache:   cache.New(ttl, 2*ttl),
		log:     logger,
	}
}

// ResolveMaintenanceImage resolves a maintenance image reference against
// the inspection image table.
func (l *Locator) ResolveMaintenanceImage(ref string) (Resolved, error) {
	return l.resolve(ref, "maintenance image", func(id uint) (string, error) {
		image, err := l.ds.GetInspectionImage(id)
		if err != nil {
			return "", err
		}
		return image.ImageURL, nil
	})
}

// ResolveBaselineImage resolves a baseline image reference against the
// transformer image table.
func (l *Locator) ResolveBaselineImage(ref string) (Resolved, error) {
	return l.resolve(ref, "baseline image", func(id uint) (string, error) {
		image, err := l.ds.GetTransformerImage(id)
		if err != nil {
			return "", err
		}
		return image.ImageURL, nil
	})
}

func (l *Locator) resolve(ref, kind string, lookup func(uint) (string, error)) (Resolved, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolved{}, errors.Newf("%s reference cannot be empty", kind).
			Category(errors.CategoryValidation).
			Component("imagestore").
			Build()
	}

	// Already a URL, nothing to resolve
	if strings.HasPrefix(ref, "http") {
		return Resolved{URL: ref}, nil
	}

	id64, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		// Not numeric, treat as a storage object key
		l.log.Debug("Treating reference as storage key", "kind", kind, "ref", ref)
		return Resolved{URL: l.BuildPublicURL(ref)}, nil
	}
	id := uint(id64)

	cacheKey := fmt.Sprintf("%s:%d", kind, id)
	if cached, found := l.cache.Get(cacheKey); found {
		url := cached.(string)
		logging.Trace("Image URL cache hit", "kind", kind, "id", id)
		return Resolved{URL: url, ImageID: &id}, nil
	}

	stored, err := lookup(id)
	if err != nil {
		return Resolved{}, err
	}
	if strings.TrimSpace(stored) == "" {
		return Resolved{}, errors.Newf("%s URL is empty for image ID: %d", kind, id).
			Category(errors.CategoryImageResolve).
			Component("imagestore").
			Build()
	}

	url := l.BuildPublicURL(stored)
	l.cache.Set(cacheKey, url, cache.DefaultExpiration)
	return Resolved{URL: url, ImageID: &id}, nil
}

// BuildPublicURL returns the value unchanged if it is already a URL,
// otherwise joins it with the configured public base URL.
func (l *Locator) BuildPublicURL(key string) string {
	if strings.HasPrefix(key, "http") {
		return key
	}
	if l.baseURL == "" {
		return key
	}
	return l.baseURL + "/" + strings.TrimLeft(key, "/")
}
