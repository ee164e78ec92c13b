package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/weather"
)

// Forecast window for validated requests, relative to today.
const (
	windowPastDays   = 365
	windowFutureDays = 90
)

// maxRangeDays caps the days one weather-type request may classify.
const maxRangeDays = 366

// RegisterRoutes wires the HTTP handlers into the Fiber app. now supplies
// "today" for request validation.
func RegisterRoutes(app *fiber.App, service *weather.Service, now func() time.Time) {
	h := &handler{service: service, validate: newValidator(now)}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Welcome to the Weather Forecasting API"})
	})

	app.Get("/predict/:date", h.hourlyByPath)
	app.Post("/predict", h.hourlyByBody)
	app.Post("/predict_temp/monthly", h.monthlyTemperatures)
	app.Post("/predict_rain", h.rainfall)
	app.Get("/predict_weather/:start/:end", h.weatherTypesByPath)
	app.Post("/predict_weather", h.weatherTypesByBody)
}

type handler struct {
	service  *weather.Service
	validate *validator.Validate
}

func (h *handler) hourlyByPath(c *fiber.Ctx) error {
	date, err := parseDateParam(c.Params("date"))
	if err != nil {
		return err
	}
	return h.hourly(c, date)
}

func (h *handler) hourlyByBody(c *fiber.Ctx) error {
	var in predictionInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	date, err := parseDateParam(in.TargetDate)
	if err != nil {
		return err
	}

	req := predictionRequest{TargetDate: date}
	if err := h.validate.Struct(req); err != nil {
		return toHTTPError(fmt.Errorf("%w: the target date must be within 1 year before and 3 months after today", forecast.ErrInvalidDateRange))
	}
	return h.hourly(c, req.TargetDate)
}

func (h *handler) hourly(c *fiber.Ctx, date time.Time) error {
	res, err := h.service.Hourly(c.UserContext(), date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(res)
}

func (h *handler) monthlyTemperatures(c *fiber.Ctx) error {
	dates, err := parseDatesBody(c)
	if err != nil {
		return err
	}
	res, err := h.service.Temperatures(c.UserContext(), dates)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(res)
}

func (h *handler) rainfall(c *fiber.Ctx) error {
	dates, err := parseDatesBody(c)
	if err != nil {
		return err
	}
	res, err := h.service.Rainfall(c.UserContext(), dates)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(res)
}

func (h *handler) weatherTypesByPath(c *fiber.Ctx) error {
	start, err := parseDateParam(c.Params("start"))
	if err != nil {
		return err
	}
	end, err := parseDateParam(c.Params("end"))
	if err != nil {
		return err
	}
	return h.weatherTypes(c, start, end)
}

func (h *handler) weatherTypesByBody(c *fiber.Ctx) error {
	var in dateRangeInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	start, err := parseDateParam(in.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDateParam(in.EndDate)
	if err != nil {
		return err
	}

	req := dateRangeRequest{Start: start, End: end}
	if err := h.validate.Struct(req); err != nil {
		return toHTTPError(fmt.Errorf("%w: %s", forecast.ErrInvalidDateRange, describeRangeError(err)))
	}
	return h.weatherTypes(c, req.Start, req.End)
}

func (h *handler) weatherTypes(c *fiber.Ctx, start, end time.Time) error {
	if days := int(common.Day(end).Sub(common.Day(start)).Hours()/24) + 1; days > maxRangeDays {
		return toHTTPError(fmt.Errorf("%w: the range covers %d days; at most %d are allowed", forecast.ErrInvalidDateRange, days, maxRangeDays))
	}
	res, err := h.service.WeatherTypes(c.UserContext(), start, end)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(res)
}

// predictionInput is the body of POST /predict.
type predictionInput struct {
	TargetDate string `json:"target_date"`
}

// predictionRequest is a parsed and validated predictionInput.
type predictionRequest struct {
	TargetDate time.Time `validate:"required,forecastwindow"`
}

// datesInput is the body of the batch endpoints.
type datesInput struct {
	Dates []string `json:"dates"`
}

// dateRangeInput is the body of POST /predict_weather.
type dateRangeInput struct {
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
}

// dateRangeRequest is a parsed and validated dateRangeInput.
type dateRangeRequest struct {
	Start time.Time `validate:"required,forecastwindow"`
	End   time.Time `validate:"required,forecastwindow,gtfield=Start"`
}

// newValidator returns a validator with the forecastwindow tag bound to now.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("forecastwindow", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return inForecastWindow(common.Day(t), common.Day(now()))
	})
	if err != nil {
		panic(fmt.Sprintf("register forecastwindow validation: %v", err))
	}
	return v
}

func inForecastWindow(day, today time.Time) bool {
	return !day.Before(today.AddDate(0, 0, -windowPastDays)) && !day.After(today.AddDate(0, 0, windowFutureDays))
}

func describeRangeError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "gtfield" {
				return "the start date must be before the end date"
			}
		}
	}
	return "the target dates must be within 1 year before and 3 months after today"
}

func parseDatesBody(c *fiber.Ctx) ([]time.Time, error) {
	var in datesInput
	if err := c.BodyParser(&in); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	dates := make([]time.Time, 0, len(in.Dates))
	for _, s := range in.Dates {
		d, err := parseDateParam(s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date is required")
	}
	d, err := common.ParseDate(s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid date %q; use YYYY-MM-DD", s))
	}
	return d, nil
}
