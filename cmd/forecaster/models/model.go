package models

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/analogcast/cmd/forecaster/config"
	"github.com/HatiCode/analogcast/pkg/calendar"
	"github.com/HatiCode/analogcast/pkg/models"
)

// NewCalendar builds the calendar from the YAML calendar file when one is
// configured, otherwise from the weekday-group and holiday-map JSON flags.
func NewCalendar(cfg *config.Config, logger *slog.Logger) (*calendar.Calendar, error) {
	var cal *calendar.Calendar
	if cfg.CalendarFile != "" {
		c, err := calendar.LoadFile(cfg.CalendarFile)
		if err != nil {
			return nil, err
		}
		cal = c
	} else {
		groups, err := calendar.ParseWeekdayGroupsJSON(cfg.WeekdayGroups)
		if err != nil {
			return nil, fmt.Errorf("weekday groups: %w", err)
		}
		var holidays *calendar.HolidayMap
		if cfg.HolidayMap != "" {
			if holidays, err = calendar.ParseHolidayMapJSON(cfg.HolidayMap); err != nil {
				return nil, fmt.Errorf("holiday map: %w", err)
			}
		}
		cal = calendar.New(groups, holidays)
	}

	if unmapped := cal.Groups.Unmapped(); len(unmapped) > 0 {
		names := make([]string, len(unmapped))
		for i, w := range unmapped {
			names[i] = w.String()
		}
		logger.Warn("weekdays not covered by any group; forecasting such a day will fail", "weekdays", names)
	}

	logger.Info("calendar configured",
		"groups", len(cal.Groups.Groups()),
		"holidays", cal.Holidays.Len(),
	)

	return cal, nil
}

// New creates the forecasting model named by cfg.Model.
func New(cfg *config.Config, cal *calendar.Calendar, logger *slog.Logger) (models.Model, error) {
	opts := models.DefaultOptions()
	opts.ComparisonDays = cfg.ComparisonDays
	opts.Workers = cfg.Workers

	switch cfg.Model {
	case "analog":
		logger.Info("initializing analog model",
			"comparison_days", opts.ComparisonDays,
			"workers", opts.Workers,
		)
		return models.NewAnalogModel(cal, opts, logger), nil

	case "naive":
		logger.Info("initializing naive model",
			"comparison_days", opts.ComparisonDays,
			"workers", opts.Workers,
		)
		return models.NewNaiveModel(cal, opts, logger), nil

	default:
		return nil, fmt.Errorf("invalid model type %q", cfg.Model)
	}
}
