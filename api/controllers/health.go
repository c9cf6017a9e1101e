package controllers

import (
	"net/http"

	"github.com/minhngo-dev/thiepcuoi-backend/api/responses"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/redis"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/storage/gcs"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Thiepcuoi-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports the state of each dependency individually so an
// operator can tell which one took the site down.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Thiepcuoi-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		probe := func(name string, ping func() error) {
			if ping == nil {
				checks[name] = "skipped"
				return
			}
			if err := ping(); err != nil {
				healthy = false
				checks[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "health.dependency_down", err)
				}
				return
			}
			checks[name] = "up"
		}

		if dbP != nil {
			probe("postgres", func() error { return dbP.Ping(r.Context()) })
		}
		if redisP != nil {
			probe("redis", func() error { return redisP.Ping(r.Context()) })
		}
		if gcsP != nil {
			probe("gcs", func() error { return gcsP.Ping(r.Context()) })
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		responses.WriteSuccessStatus(w, code, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}
