package sync

import (
	"context"

	"github.com/ozdirect/pricesync/internal/application/common"
)

// StartFullSyncCommand begins (or resumes) a full catalog synchronization.
type StartFullSyncCommand struct {
	RunType string
}

// StartFullSyncHandler handles StartFullSyncCommand
type StartFullSyncHandler struct {
	service *Service
}

func NewStartFullSyncHandler(service *Service) *StartFullSyncHandler {
	return &StartFullSyncHandler{service: service}
}

func (h *StartFullSyncHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd := request.(StartFullSyncCommand)
	return h.service.StartFullSync(ctx, cmd.RunType)
}
