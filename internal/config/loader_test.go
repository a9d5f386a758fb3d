package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/polytrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":4173")
				convey.So(cfg.DataDir, convey.ShouldEqual, "data")
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
				convey.So(cfg.TrustProxyHeaders, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("POLYTRACK_ADDR", ":8080")
			_ = os.Setenv("POLYTRACK_STORE_BACKEND", "memory")
			_ = os.Setenv("POLYTRACK_SCORING_BOARD_CAP", "250")
			_ = os.Setenv("POLYTRACK_COVERAGE_WEIGHT", "0.2")
			_ = os.Setenv("POLYTRACK_STRICT_IDS", "true")
			_ = os.Setenv("POLYTRACK_CORS_ORIGINS", "https://a.example, https://b.example")
			_ = os.Setenv("POLYTRACK_TRUST_PROXY_HEADERS", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.ScoringBoardCap, convey.ShouldEqual, 250)
				convey.So(cfg.CoverageWeight, convey.ShouldEqual, 0.2)
				convey.So(cfg.StrictIDs, convey.ShouldBeTrue)
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
				convey.So(cfg.TrustProxyHeaders, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempFile(t, "polytrack-config-*.yaml", `
addr: ":9090"
data_dir: "/var/lib/polytrack"
leaderboard_limit: 50
writer_queue_size: 64
`)
			_ = os.Setenv("POLYTRACK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DataDir, convey.ShouldEqual, "/var/lib/polytrack")
				convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 50)
				convey.So(cfg.WriterQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 1_000_000)
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempFile(t, "polytrack-config-*.yaml", `
addr: ":9090"
leaderboard_limit: 50
`)
			_ = os.Setenv("POLYTRACK_CONFIG", tmpFile)
			_ = os.Setenv("POLYTRACK_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When a .env file provides secrets", func() {
			envFile := createTempFile(t, "polytrack-*.env", "POLYTRACK_ADMIN_PASSWORD=hunter2\nPOLYTRACK_ADDR=:6060\n")
			_ = os.Setenv("POLYTRACK_ENV_FILE", envFile)
			_ = os.Setenv("POLYTRACK_ADDR", ":5050")

			cfg, err := config.Load(ctx)

			convey.Convey("Then unset variables come from the file and set ones are kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AdminPassword, convey.ShouldEqual, "hunter2")
				convey.So(cfg.Addr, convey.ShouldEqual, ":5050")
			})
		})

		convey.Convey("When the .env file does not exist", func() {
			_ = os.Setenv("POLYTRACK_ENV_FILE", "/non/existent/.env")

			_, err := config.Load(ctx)

			convey.Convey("Then it is ignored", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile(t, "polytrack-config-*.yaml", `invalid: yaml: content: [`)
			_ = os.Setenv("POLYTRACK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("POLYTRACK_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("POLYTRACK_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the backend is postgres without a url", func() {
			_ = os.Setenv("POLYTRACK_STORE_BACKEND", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres_url")
			})
		})

		convey.Convey("When the backend is unknown", func() {
			_ = os.Setenv("POLYTRACK_STORE_BACKEND", "redis")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("POLYTRACK_WRITER_QUEUE_SIZE", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"POLYTRACK_CONFIG",
		"POLYTRACK_ENV_FILE",
		"POLYTRACK_ADDR",
		"POLYTRACK_STORE_BACKEND",
		"POLYTRACK_SCORING_BOARD_CAP",
		"POLYTRACK_COVERAGE_WEIGHT",
		"POLYTRACK_STRICT_IDS",
		"POLYTRACK_CORS_ORIGINS",
		"POLYTRACK_TRUST_PROXY_HEADERS",
		"POLYTRACK_ADMIN_PASSWORD",
		"POLYTRACK_WRITER_QUEUE_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempFile(t *testing.T, pattern, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpFile.Name()
}
