package pricereset

import (
	"context"

	"github.com/ozdirect/pricesync/internal/application/common"
)

// RunPriceResetCommand rolls back every SKU whose promotion expires by
// tomorrow.
type RunPriceResetCommand struct{}

// RunPriceResetHandler handles RunPriceResetCommand
type RunPriceResetHandler struct {
	service *Service
}

func NewRunPriceResetHandler(service *Service) *RunPriceResetHandler {
	return &RunPriceResetHandler{service: service}
}

func (h *RunPriceResetHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	return h.service.Run(ctx)
}
