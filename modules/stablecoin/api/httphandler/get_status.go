package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

type liveStatus struct {
	Ready     bool `json:"ready"`
	Listeners int  `json:"listeners"`
}

type getStatusResult struct {
	ProgramID          string     `json:"programId"`
	LastSlot           int64      `json:"lastSlot"`
	DBVersion          int32      `json:"dbVersion"`
	EventSchemaVersion int32      `json:"eventSchemaVersion"`
	UpdatedAt          *time.Time `json:"updatedAt"`
	Live               liveStatus `json:"live"`
}

func (h *HttpHandler) GetStatus(ctx *fiber.Ctx) (err error) {
	state, err := h.usecase.GetStatus(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetStatus")
	}
	result := getStatusResult{
		ProgramID:          state.ProgramID,
		LastSlot:           state.LastSlot,
		DBVersion:          state.DBVersion,
		EventSchemaVersion: state.EventSchemaVersion,
		Live: liveStatus{
			Ready:     h.broker.Ready(),
			Listeners: h.broker.Len(),
		},
	}
	if !state.UpdatedAt.IsZero() {
		updatedAt := state.UpdatedAt.UTC()
		result.UpdatedAt = &updatedAt
	}
	return errors.WithStack(ctx.JSON(result))
}
