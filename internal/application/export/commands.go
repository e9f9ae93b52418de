package export

import (
	"context"

	"github.com/ozdirect/pricesync/internal/application/common"
)

// CreateExportJobCommand builds a diff CSV for one country.
type CreateExportJobCommand struct {
	Country   string
	CreatedBy string
}

// GetExportJobFileQuery fetches a stored job with its CSV blob.
type GetExportJobFileQuery struct {
	JobID string
}

// ApplyExportJobCommand commits a job's diffs into the baseline.
type ApplyExportJobCommand struct {
	JobID     string
	ApplierID string
}

// CreateExportJobHandler handles CreateExportJobCommand
type CreateExportJobHandler struct {
	service *Service
}

func NewCreateExportJobHandler(service *Service) *CreateExportJobHandler {
	return &CreateExportJobHandler{service: service}
}

func (h *CreateExportJobHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd := request.(CreateExportJobCommand)
	return h.service.CreateExportJob(ctx, cmd.Country, cmd.CreatedBy)
}

// GetExportJobFileHandler handles GetExportJobFileQuery
type GetExportJobFileHandler struct {
	service *Service
}

func NewGetExportJobFileHandler(service *Service) *GetExportJobFileHandler {
	return &GetExportJobFileHandler{service: service}
}

func (h *GetExportJobFileHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	q := request.(GetExportJobFileQuery)
	return h.service.GetExportJobFile(ctx, q.JobID)
}

// ApplyExportJobHandler handles ApplyExportJobCommand
type ApplyExportJobHandler struct {
	service *Service
}

func NewApplyExportJobHandler(service *Service) *ApplyExportJobHandler {
	return &ApplyExportJobHandler{service: service}
}

func (h *ApplyExportJobHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd := request.(ApplyExportJobCommand)
	return nil, h.service.ApplyExportJob(ctx, cmd.JobID, cmd.ApplierID)
}
