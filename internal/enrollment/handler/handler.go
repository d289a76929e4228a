package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"datapass/internal/audit"
	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/service"
	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
	"datapass/pkg/platform/httputil"
	"datapass/pkg/requestcontext"
)

// Service defines the interface for enrollment lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor models.Actor, req service.CreateRequest) (*models.Enrollment, error)
	Get(ctx context.Context, enrollmentID id.EnrollmentID, actorID id.UserID) (*models.Enrollment, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Enrollment, error)
	UpdateDraft(ctx context.Context, enrollmentID id.EnrollmentID, actor models.Actor, req service.UpdateRequest) (*models.Enrollment, error)
	AttemptTransition(ctx context.Context, enrollmentID id.EnrollmentID, event models.Event, actor models.Actor, req models.TransitionRequest) (*service.TransitionResult, error)
	Trail(ctx context.Context, enrollmentID id.EnrollmentID, actorID id.UserID) ([]audit.Event, error)
}

// Handler wires enrollment endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an enrollment handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts enrollment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/enrollments", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{enrollmentID}", h.HandleGet)
		r.Patch("/{enrollmentID}", h.HandleUpdate)
		r.Get("/{enrollmentID}/events", h.HandleTrail)
		r.Post("/{enrollmentID}/{event}", h.HandleTransition)
	})
}

// HandleCreate handles POST /enrollments requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateEnrollmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.Create(ctx, actor, req.ToServiceRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "enrollment creation failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"variant", req.Variant,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "enrollment created",
		"request_id", requestID,
		"enrollment_id", e.ID,
		"variant", e.Variant.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, e)
}

// HandleList handles GET /enrollments requests. The listing is scoped to the
// caller: their own requests plus the backlog of every variant they
// administer.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	list, err := h.service.ListForUser(ctx, actor.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*models.Enrollment{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /enrollments/{enrollmentID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	enrollmentID, ok := h.pathEnrollmentID(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(ctx, enrollmentID, actor.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

// HandleUpdate handles PATCH /enrollments/{enrollmentID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	enrollmentID, ok := h.pathEnrollmentID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateEnrollmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.UpdateDraft(ctx, enrollmentID, actor, req.ToServiceRequest())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

// HandleTransition handles POST /enrollments/{enrollmentID}/{event} requests.
//
// A mandatory side-effect failure is the one case where an error response
// still carries the enrollment: the state change is committed and the caller
// needs to see where the record ended up.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	enrollmentID, ok := h.pathEnrollmentID(w, r)
	if !ok {
		return
	}
	event, err := models.ParseEvent(chi.URLParam(r, "event"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Most transitions carry no payload; an absent body is not an error.
	var body TransitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.AttemptTransition(ctx, enrollmentID, event, actor, body.ToTransitionRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "transition attempt failed",
			"request_id", requestID,
			"enrollment_id", enrollmentID,
			"event", string(event),
			"error", err,
		)
		if result != nil && dErrors.HasCode(err, dErrors.CodeSideEffect) {
			httputil.WriteJSON(w, http.StatusBadGateway, FromFailedSideEffect(result, err))
			return
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transition committed",
		"request_id", requestID,
		"enrollment_id", enrollmentID,
		"event", string(event),
		"state", string(result.Enrollment.State),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleTrail handles GET /enrollments/{enrollmentID}/events requests.
func (h *Handler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	enrollmentID, ok := h.pathEnrollmentID(w, r)
	if !ok {
		return
	}

	trail, err := h.service.Trail(ctx, enrollmentID, actor.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if trail == nil {
		trail = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, trail)
}

// requireActor builds the acting user from the authenticated context. A
// missing user ID means the auth middleware did not run or rejected the
// request.
func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (models.Actor, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return models.Actor{}, false
	}
	return models.Actor{
		ID:            userID,
		Email:         requestcontext.UserEmail(ctx),
		EmailVerified: requestcontext.EmailVerified(ctx),
	}, true
}

func (h *Handler) pathEnrollmentID(w http.ResponseWriter, r *http.Request) (id.EnrollmentID, bool) {
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "enrollmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid enrollment id"))
		return id.EnrollmentID{}, false
	}
	return enrollmentID, true
}
