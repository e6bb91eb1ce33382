package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "github.com/padraicbc/inscricoes/middleware"
	"github.com/padraicbc/inscricoes/store"
)

// Body fields accepted for the pickup flag, in priority order. kitretirado
// is the name older admin clients still send.
var pickupFields = []string{"pickup", "kitretirado"}

var (
	errPickupNotObject = errors.New("body must be a JSON object")
	errPickupMissing   = errors.New(`body must carry a boolean "pickup" (or "kitretirado") field`)
)

// parsePickup extracts the pickup flag from a request body. The first field
// in pickupFields holding a JSON boolean wins; null and non-boolean values
// are treated as absent.
func parsePickup(raw []byte) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, errPickupNotObject
	}

	for _, name := range pickupFields {
		v, ok := fields[name]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if bytes.Equal(v, []byte("null")) {
			continue
		}
		var picked bool
		if err := json.Unmarshal(v, &picked); err == nil {
			return picked, nil
		}
	}
	return false, errPickupMissing
}

// received echoes a request body back in an error payload.
func received(raw []byte) interface{} {
	if len(bytes.TrimSpace(raw)) > 0 && json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return string(raw)
}

type pickupResponse struct {
	ID          int       `json:"id"`
	Pickup      bool      `json:"pickup"`
	KitRetirado bool      `json:"kitretirado"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SetKitPickup records whether a registrant has collected their kit.
// Callers must already be authenticated as admin.
func (h *Handler) SetKitPickup(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration id")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body").SetInternal(err)
	}
	defer c.Request().Body.Close()

	picked, err := parsePickup(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
			"message":  err.Error(),
			"received": received(body),
		})
	}

	reg, err := h.repo.SetKitPickup(c.Request().Context(), id, picked, h.opts.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "registration not found")
		}
		return h.internalError(c, "kit pickup update failed", err, zap.Int("id", id), zap.Bool("pickup", picked))
	}

	username, _ := c.Get(mw.ContextUsername).(string)
	h.log.Info("kit pickup updated",
		zap.Int("id", reg.ID),
		zap.Bool("pickup", reg.KitPickedUp),
		zap.String("by", username),
	)

	return c.JSON(http.StatusOK, pickupResponse{
		ID:          reg.ID,
		Pickup:      reg.KitPickedUp,
		KitRetirado: reg.KitPickedUp,
		UpdatedAt:   reg.UpdatedAt,
	})
}
