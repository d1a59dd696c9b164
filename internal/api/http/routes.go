package httpapi

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/macro-heatmap/internal/export"
	"github.com/i474232898/macro-heatmap/internal/macro"
	"github.com/i474232898/macro-heatmap/internal/store"
)

var validate = validator.New()

const noDataMessage = "no data available"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *macro.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/indicators", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"indicators": service.Catalog().All(),
		})
	})

	v1.Get("/periods", func(c *fiber.Ctx) error {
		periods, err := service.Periods()
		if err != nil {
			return mapServiceError(err)
		}
		out := make([]periodView, len(periods))
		for i, p := range periods {
			out[i] = newPeriodView(p)
		}
		return c.JSON(fiber.Map{"periods": out})
	})

	v1.Get("/grid", func(c *fiber.Ctx) error {
		var req gridQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		grid, snap, err := service.Grid(c.UserContext(), req.toQuery())
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(newGridView(grid, snap, req.Order == "asc"))
	})

	v1.Get("/grid.xlsx", func(c *fiber.Ctx) error {
		var req gridQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		grid, _, err := service.Grid(c.UserContext(), req.toQuery())
		if err != nil {
			return mapServiceError(err)
		}

		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, grid); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render spreadsheet")
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Attachment("macro-heatmap.xlsx")
		return c.Send(buf.Bytes())
	})
}

// ErrorHandler renders every error as a JSON body with the fiber status code.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, macro.ErrNotLoaded), errors.Is(err, store.ErrEmptyStore):
		return fiber.NewError(fiber.StatusServiceUnavailable, noDataMessage)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusRequestTimeout, "grid composition cancelled")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compose grid")
	}
}

// gridQuery holds query parameters for the grid endpoints.
type gridQuery struct {
	From       string `validate:"omitempty,datetime=2006-01"`
	To         string `validate:"omitempty,datetime=2006-01"`
	Months     int    `validate:"omitempty,min=1,max=1200"`
	Order      string `validate:"omitempty,oneof=asc desc"`
	Indicators []string

	from, to time.Time
}

func (q *gridQuery) bind(c *fiber.Ctx) error {
	q.From = c.Query("from")
	q.To = c.Query("to")
	q.Months = c.QueryInt("months", 0)
	q.Order = strings.ToLower(c.Query("order", "desc"))
	if raw := c.Query("indicators"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.Indicators = append(q.Indicators, id)
			}
		}
	}

	if err := validate.Struct(q); err != nil {
		return err
	}

	if q.From != "" {
		q.from, _ = macro.ParsePeriod(q.From)
	}
	if q.To != "" {
		q.to, _ = macro.ParsePeriod(q.To)
	}
	if !q.from.IsZero() && !q.to.IsZero() && q.from.After(q.to) {
		return errors.New("from must not be after to")
	}
	return nil
}

func (q gridQuery) toQuery() macro.GridQuery {
	return macro.GridQuery{
		Indicators: q.Indicators,
		From:       q.from,
		To:         q.to,
		Months:     q.Months,
	}
}

type periodView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func newPeriodView(p time.Time) periodView {
	return periodView{
		Key:   p.Format(macro.PeriodKeyLayout),
		Label: p.Format(macro.PeriodLabelLayout),
	}
}

type cellView struct {
	Period  string       `json:"period"`
	Value   *float64     `json:"value"`
	Status  macro.Status `json:"status"`
	Display string       `json:"display"`
}

type rowView struct {
	Indicator  string     `json:"indicator"`
	Label      string     `json:"label"`
	Configured bool       `json:"configured"`
	Method     string     `json:"aggregation,omitempty"`
	Cells      []cellView `json:"cells"`
}

type gridView struct {
	Snapshot string         `json:"snapshot"`
	LoadedAt time.Time      `json:"loadedAt"`
	Source   string         `json:"source"`
	Periods  []periodView   `json:"periods"`
	Rows     []rowView      `json:"rows"`
	Counts   map[string]int `json:"counts"`
}

func newGridView(grid *macro.Grid, snap *macro.Snapshot, ascending bool) gridView {
	order := make([]int, len(grid.Periods))
	for j := range order {
		if ascending {
			order[j] = j
		} else {
			order[j] = len(order) - 1 - j
		}
	}

	view := gridView{
		Snapshot: snap.ID,
		LoadedAt: snap.LoadedAt,
		Source:   snap.Source,
		Periods:  make([]periodView, 0, len(order)),
		Rows:     make([]rowView, 0, len(grid.Indicators)),
		Counts:   make(map[string]int, len(macro.Statuses)),
	}
	for _, j := range order {
		view.Periods = append(view.Periods, newPeriodView(grid.Periods[j]))
	}
	for i, ind := range grid.Indicators {
		row := rowView{
			Indicator:  ind.ID,
			Label:      ind.Label,
			Configured: ind.Configured,
			Cells:      make([]cellView, 0, len(order)),
		}
		if ind.Configured {
			row.Method = ind.Method.String()
		}
		for _, j := range order {
			cell := grid.Cells[i][j]
			row.Cells = append(row.Cells, cellView{
				Period:  cell.Period.Format(macro.PeriodKeyLayout),
				Value:   cell.Value,
				Status:  cell.Status,
				Display: cell.Display,
			})
		}
		view.Rows = append(view.Rows, row)
	}
	for status, n := range grid.StatusCounts() {
		view.Counts[string(status)] = n
	}
	return view
}
