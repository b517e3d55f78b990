package cache

import (
	"strconv"
	"time"

	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	"github.com/smallbiznis/gatekeeper/internal/notify"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"github.com/smallbiznis/gatekeeper/internal/telemetry"
	"go.uber.org/fx"
)

const (
	defaultLicenseTTL  = 30 * time.Second
	defaultSettingsTTL = 15 * time.Second

	activeLicenseKey = "license:active"
)

// ResolverCache stores hot-path reads for the entitlement engine: the active
// license and resolved settings. Stale reads are bounded by the TTLs plus
// invalidation propagation delay.
type ResolverCache interface {
	GetActiveLicense() (*licensedomain.Response, bool)
	SetActiveLicense(grant *licensedomain.Response)
	GetResolvedSetting(namespaceID int64, key string) (settingsdomain.Resolved, bool)
	SetResolvedSetting(namespaceID int64, key string, resolved settingsdomain.Resolved)
	InvalidateLicense()
	InvalidateSettings(namespaceID int64)
	InvalidateAll()
}

type resolverCache struct {
	// licenses holds a single entry; the cache type keeps the nil/missing
	// distinction uniform with settings.
	licenses    Cache[string, *licensedomain.Response]
	settings    Cache[string, settingsdomain.Resolved]
	licenseTTL  time.Duration
	settingsTTL time.Duration
	metrics     *telemetry.Metrics
}

// NewResolverCache returns an in-memory resolver cache subscribed to the
// invalidation bus.
func NewResolverCache(bus notify.Bus, metrics *telemetry.Metrics) ResolverCache {
	c := &resolverCache{
		licenses:    NewTTLCache[string, *licensedomain.Response](),
		settings:    NewTTLCache[string, settingsdomain.Resolved](),
		licenseTTL:  defaultLicenseTTL,
		settingsTTL: defaultSettingsTTL,
		metrics:     metrics,
	}
	bus.Subscribe(c.onEvent)
	return c
}

func (c *resolverCache) onEvent(event notify.Event) {
	if c.metrics != nil {
		c.metrics.CacheInvalidation(string(event.Kind))
	}
	switch event.Kind {
	case notify.EventLicenseChanged:
		c.InvalidateLicense()
	case notify.EventSettingsChanged:
		if event.Key == "" {
			c.settings.Purge()
			return
		}
		namespaceID, err := strconv.ParseInt(event.Key, 10, 64)
		if err != nil {
			c.settings.Purge()
			return
		}
		c.InvalidateSettings(namespaceID)
	default:
		c.InvalidateAll()
	}
}

func (c *resolverCache) GetActiveLicense() (*licensedomain.Response, bool) {
	return c.licenses.Get(activeLicenseKey)
}

func (c *resolverCache) SetActiveLicense(grant *licensedomain.Response) {
	c.licenses.Set(activeLicenseKey, grant, c.licenseTTL)
}

func (c *resolverCache) GetResolvedSetting(namespaceID int64, key string) (settingsdomain.Resolved, bool) {
	return c.settings.Get(settingKey(namespaceID, key))
}

func (c *resolverCache) SetResolvedSetting(namespaceID int64, key string, resolved settingsdomain.Resolved) {
	c.settings.Set(settingKey(namespaceID, key), resolved, c.settingsTTL)
}

func (c *resolverCache) InvalidateLicense() {
	c.licenses.Delete(activeLicenseKey)
}

// InvalidateSettings drops cached resolutions for one namespace. Descendants
// inherit through the resolver, so their entries are dropped wholesale on any
// write; the settings service publishes one event per affected namespace.
func (c *resolverCache) InvalidateSettings(namespaceID int64) {
	// Per-key deletion would need an index of cached keys per namespace;
	// resolutions are cheap to rebuild, so purge instead.
	c.settings.Purge()
	_ = namespaceID
}

func (c *resolverCache) InvalidateAll() {
	c.licenses.Purge()
	c.settings.Purge()
}

func settingKey(namespaceID int64, key string) string {
	return strconv.FormatInt(namespaceID, 10) + "|" + key
}

// Module provides the resolver cache.
var Module = fx.Module("cache",
	fx.Provide(NewResolverCache),
)
