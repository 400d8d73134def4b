package student

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"tejanitos/internal/app/server/api/http/apierr"
	"tejanitos/internal/domain/student"
)

type Handler struct {
	service    student.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service student.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.findByKeyOp(), h.findByKey)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
	huma.Register(api, h.importOp(), h.bulkImport)
	huma.Register(api, h.batchOp(), h.batchUpdate)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	records, err := h.service.ListAll(ctx)
	if err != nil {
		return nil, apierr.From(err)
	}

	return &listOutput{
		Body: listResponse{
			Students: toDocuments(records),
			Total:    len(records),
		},
	}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*studentOutput, error) {
	created, err := h.service.CreateRecord(ctx, student.New(input.Body.Student))
	if err != nil {
		return nil, apierr.From(err)
	}

	return &studentOutput{
		Body: studentResponse{
			Status:  "Ok",
			Student: created.Document(),
		},
	}, nil
}

func (h *Handler) findByKey(ctx context.Context, input *byKeyInput) (*studentOutput, error) {
	rec, err := h.service.FindByBusinessKey(ctx, input.Key)
	if err != nil {
		return nil, apierr.From(err)
	}
	if rec == nil {
		return nil, huma.Error404NotFound("student not found")
	}

	return &studentOutput{
		Body: studentResponse{
			Status:  "Ok",
			Student: rec.Document(),
		},
	}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	if err := h.service.UpdateRecord(ctx, input.ID, student.Patch(input.Body.Fields)); err != nil {
		return nil, apierr.From(err)
	}

	return &output{
		Body: response{ID: input.ID, Status: "Ok"},
	}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*output, error) {
	if err := h.service.DeleteRecord(ctx, input.ID, input.Reason); err != nil {
		return nil, apierr.From(err)
	}

	return &output{
		Body: response{ID: input.ID, Status: "Ok"},
	}, nil
}

func (h *Handler) bulkImport(ctx context.Context, input *recordsInput) (*importOutput, error) {
	res, err := h.service.BulkImport(ctx, fromDocuments(input.Body.Students))
	if err != nil {
		return nil, apierr.From(err)
	}

	return &importOutput{Body: res}, nil
}

func (h *Handler) batchUpdate(ctx context.Context, input *recordsInput) (*batchOutput, error) {
	res, err := h.service.BatchUpdate(ctx, fromDocuments(input.Body.Students))
	if err != nil {
		return nil, apierr.From(err)
	}

	return &batchOutput{Body: res}, nil
}
