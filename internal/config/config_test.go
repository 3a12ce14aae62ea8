package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/shotcoach/internal/config"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Mode, convey.ShouldEqual, "rule")
			convey.So(cfg.EnableCaching, convey.ShouldBeTrue)
			convey.So(cfg.MaxCacheAgeMS, convey.ShouldEqual, 1_800_000)
			convey.So(cfg.RefreshWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DBPath, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = " " },
			"unknown mode":       func(c *config.Config) { c.Mode = "ml" },
			"negative cache age": func(c *config.Config) { c.MaxCacheAgeMS = -1 },
			"negative timeout":   func(c *config.Config) { c.AITimeoutMS = -5 },
			"negative queue":     func(c *config.Config) { c.RefreshQueueSize = -1 },
			"unknown roast":      func(c *config.Config) { c.RoastThresholds = map[string]float64{"cinnamon": 0.2} },
			"zero threshold":     func(c *config.Config) { c.RoastThresholds = map[string]float64{"dark": 0} },
		}

		convey.Convey("Then each is rejected with ErrInvalidConfig", func() {
			for _, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})

	convey.Convey("Given roast threshold overrides", t, func() {
		cfg := config.New()
		cfg.RoastThresholds = map[string]float64{"medium-dark": 0.3, "Light": 0.05}

		convey.Convey("Then names are parsed into roast levels", func() {
			th, err := cfg.Thresholds()
			convey.So(err, convey.ShouldBeNil)
			convey.So(th[model.RoastMediumDark], convey.ShouldEqual, 0.3)
			convey.So(th[model.RoastLight], convey.ShouldEqual, 0.05)
		})
	})
}
