package freight

import (
	"context"

	"github.com/ozdirect/pricesync/internal/application/common"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
)

// RunCalcCommand starts a manual freight calculation over every SKU whose
// attribute hash is ahead of its last calculation.
type RunCalcCommand struct{}

// RunCalcHandler handles RunCalcCommand
type RunCalcHandler struct {
	service *Service
}

func NewRunCalcHandler(service *Service) *RunCalcHandler {
	return &RunCalcHandler{service: service}
}

func (h *RunCalcHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	return nil, h.service.Kick(ctx, syncdomain.CalcTriggerManual, "")
}
