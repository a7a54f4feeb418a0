// Package geoip wraps the optional GeoLite2 country database used to
// enrich collected events. When the database is absent every lookup
// degrades to an unknown country instead of failing.
package geoip

import (
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"clickpulse/internal/config"
)

var (
	geoDB  *geoip2.Reader
	once   sync.Once
	mu     sync.RWMutex
	logger *slog.Logger
)

// InitLogger sets the logger for the geoip package.
func InitLogger(l *slog.Logger) {
	logger = l
}

// InitGeoDB initializes the GeoLite2 database.
// Returns nil if the database is not configured or not found (GeoIP is optional).
func InitGeoDB() *geoip2.Reader {
	cfg := config.GetConfig()
	if cfg.GeoDBPath == "" {
		if logger != nil {
			logger.Debug("GeoIP database path not configured - GeoIP features disabled")
		}
		return nil
	}

	if _, err := os.Stat(cfg.GeoDBPath); os.IsNotExist(err) {
		if logger != nil {
			logger.Info("GeoLite2 database not found - GeoIP features disabled",
				slog.String("path", cfg.GeoDBPath),
				slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		}
		return nil
	} else if err != nil {
		if logger != nil {
			logger.Warn("Error checking GeoLite2 database file",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	db, err := geoip2.Open(cfg.GeoDBPath)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to open GeoLite2 database",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	if logger != nil {
		logger.Info("GeoLite2 database initialized successfully",
			slog.String("path", cfg.GeoDBPath))
	}
	return db
}

// GetGeoDB returns the GeoLite2 database reader, initializing it if necessary.
func GetGeoDB() *geoip2.Reader {
	once.Do(func() {
		mu.Lock()
		geoDB = InitGeoDB()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return geoDB
}

// ReloadGeoDB reloads the GeoLite2 database from disk.
// Call this after downloading a new database file.
func ReloadGeoDB() {
	mu.Lock()
	defer mu.Unlock()

	if geoDB != nil {
		geoDB.Close()
	}
	geoDB = InitGeoDB()

	if geoDB != nil && logger != nil {
		logger.Info("GeoLite2 database reloaded successfully")
	}
}

// CountryCodeFromIP resolves an IP address to an uppercase ISO 3166-1
// alpha-2 code. Returns "" when the database is unavailable, the IP is
// unparsable, or no country is known for it.
func CountryCodeFromIP(ipAddress string) string {
	db := GetGeoDB()
	if db == nil {
		return ""
	}

	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return ""
	}

	record, err := db.Country(ip)
	if err != nil {
		if logger != nil {
			logger.Debug("GeoIP country lookup failed",
				slog.String("ip_address", ipAddress),
				slog.Any("error", err))
		}
		return ""
	}
	return record.Country.IsoCode
}
