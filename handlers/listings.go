package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type registrationJSON struct {
	ID        int    `json:"id"`
	FullName  string `json:"fullName"`
	CPF       string `json:"cpf"`
	Category  string `json:"category"`
	Kit       string `json:"kit"`
	ShirtSize string `json:"shirtSize"`
	Status    string `json:"status"`
}

// Registrations returns every registration ordered by id.
func (h *Handler) Registrations(c echo.Context) error {
	regs, err := h.repo.Registrations(c.Request().Context())
	if err != nil {
		return h.internalError(c, "list registrations failed", err)
	}

	result := make([]registrationJSON, len(regs))
	for i, r := range regs {
		result[i] = registrationJSON{
			ID:        r.ID,
			FullName:  r.FullName,
			CPF:       r.CPF,
			Category:  r.Category,
			Kit:       r.Kit,
			ShirtSize: r.ShirtSize,
			Status:    r.Status,
		}
	}

	return c.JSON(http.StatusOK, result)
}

// Kits returns all kits, available or not.
func (h *Handler) Kits(c echo.Context) error {
	kits, err := h.repo.Kits(c.Request().Context())
	if err != nil {
		return h.internalError(c, "list kits failed", err)
	}
	if kits == nil {
		return c.JSON(http.StatusOK, []struct{}{})
	}

	return c.JSON(http.StatusOK, kits)
}

// Tiers returns the pricing tiers open right now, earliest start first.
func (h *Handler) Tiers(c echo.Context) error {
	now := h.opts.Now()
	tiers, err := h.repo.CurrentTiers(c.Request().Context(), now)
	if err != nil {
		return h.internalError(c, "list tiers failed", err, zap.Time("now", now))
	}
	if tiers == nil {
		return c.JSON(http.StatusOK, []struct{}{})
	}

	return c.JSON(http.StatusOK, tiers)
}

type resultsQuery struct {
	Category string `query:"category" validate:"required"`
}

// Results returns the finishers of one category by placement.
func (h *Handler) Results(c echo.Context) error {
	var q resultsQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query").SetInternal(err)
	}
	q.Category = strings.TrimSpace(q.Category)
	if err := c.Validate(&q); err != nil {
		return err
	}

	results, err := h.repo.ResultsByCategory(c.Request().Context(), q.Category)
	if err != nil {
		return h.internalError(c, "list results failed", err, zap.String("category", q.Category))
	}
	if results == nil {
		return c.JSON(http.StatusOK, []struct{}{})
	}

	return c.JSON(http.StatusOK, results)
}
