package inactive

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
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.restoreOp(), h.restore)
	huma.Register(api, h.purgeOp(), h.purge)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	records, err := h.service.ListInactive(ctx)
	if err != nil {
		return nil, apierr.From(err)
	}

	docs := make([]document, len(records))
	for i, r := range records {
		docs[i] = r.Document()
	}

	return &listOutput{
		Body: listResponse{Students: docs, Total: len(docs)},
	}, nil
}

func (h *Handler) get(ctx context.Context, input *getInput) (*getOutput, error) {
	rec, err := h.service.GetInactive(ctx, input.ID)
	if err != nil {
		return nil, apierr.From(err)
	}

	return &getOutput{
		Body: getResponse{Status: "Ok", Student: rec.Document()},
	}, nil
}

func (h *Handler) restore(ctx context.Context, input *restoreInput) (*output, error) {
	target := student.New(input.Body.Student)
	if target.ID == "" {
		target.ID = input.ID
	}

	if err := h.service.RestoreRecord(ctx, input.ID, target); err != nil {
		return nil, apierr.From(err)
	}

	h.log.Info("inactive record restored", "inactive_id", input.ID, "target_id", target.ID)

	return &output{
		Body: response{ID: target.ID, Status: "Ok"},
	}, nil
}

func (h *Handler) purge(ctx context.Context, input *purgeInput) (*purgeOutput, error) {
	count, err := h.service.DeleteInactive(ctx, input.Body.IDs)
	if err != nil {
		return nil, apierr.From(err)
	}

	return &purgeOutput{Body: purgeResponse{Count: count}}, nil
}
