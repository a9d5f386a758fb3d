package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/polytrack/internal/adapters/http/api"
	"github.com/okian/polytrack/internal/adapters/repository"
	"github.com/okian/polytrack/internal/config"
	"github.com/okian/polytrack/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.StoreBackend = config.BackendMemory
	cfg.StaticDir = t.TempDir()
	cfg.Addr = "127.0.0.1:0"
	return cfg
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given POLYTRACK_ variables in the environment", t, func() {
		t.Setenv("POLYTRACK_ENV_FILE", "")
		t.Setenv("POLYTRACK_ADDR", ":8080")
		t.Setenv("POLYTRACK_STORE_BACKEND", "memory")
		t.Setenv("POLYTRACK_COVERAGE_WEIGHT", "0.3")

		convey.Convey("Then Load applies them over the defaults", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.CoverageWeight, convey.ShouldEqual, 0.3)
			convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 100)
		})
	})
}

func TestHandlerWiring(t *testing.T) {
	convey.Convey("Given the full handler over a memory store", t, func() {
		cfg := memoryConfig(t)
		convey.So(os.WriteFile(filepath.Join(cfg.StaticDir, "index.html"), []byte("<html>game</html>"), 0o600), convey.ShouldBeNil)

		ctx := context.Background()
		store, err := repository.Open(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		svc := newService(cfg, store, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		h := newHandler(cfg, svc, nil, logger.Get())
		do := func(method, target, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		convey.Convey("When a result is posted and the board is read back", func() {
			w := do(http.MethodPost, "/api/race-result", `{"trackId":"oval","userId":"u1","name":"Ann","timeMs":61000}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			w = do(http.MethodGet, "/api/leaderboard?trackId=oval", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			var board struct {
				TrackID string `json:"trackId"`
				Entries []struct {
					Rank   int    `json:"rank"`
					UserID string `json:"userId"`
				} `json:"entries"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &board), convey.ShouldBeNil)
			convey.So(board.TrackID, convey.ShouldEqual, "oval")
			convey.So(len(board.Entries), convey.ShouldEqual, 1)
			convey.So(board.Entries[0].UserID, convey.ShouldEqual, "u1")
			convey.So(w.Header().Get(api.RequestIDHeader), convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then docs, health and static files are all reachable", func() {
			convey.So(do(http.MethodGet, "/openapi.yaml", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(do(http.MethodGet, "/api-docs", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(do(http.MethodGet, "/healthz", "").Code, convey.ShouldEqual, http.StatusOK)

			w := do(http.MethodGet, "/", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "game")
		})

		convey.Convey("Then unknown API paths stay JSON 404s", func() {
			w := do(http.MethodGet, "/api/nope", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"error":"Not found"`)
		})
	})
}

func TestRateLimitedHandler(t *testing.T) {
	convey.Convey("Given a handler with a one request burst", t, func() {
		cfg := memoryConfig(t)
		ctx := context.Background()
		store, err := repository.Open(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		svc := newService(cfg, store, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		h := newHandler(cfg, svc, api.NewRateLimiter(0.001, 1), logger.Get())
		post := func() int {
			req := httptest.NewRequest(http.MethodPost, "/api/tracks", strings.NewReader(`{"trackId":"oval"}`))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w.Code
		}

		convey.Convey("Then the second write is rejected and reads are not throttled", func() {
			convey.So(post(), convey.ShouldEqual, http.StatusOK)
			convey.So(post(), convey.ShouldEqual, http.StatusTooManyRequests)

			req := httptest.NewRequest(http.MethodGet, "/api/tracks", http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		cfg := memoryConfig(t)
		cfg.RateLimitRPS = 5
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run returns without error", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
