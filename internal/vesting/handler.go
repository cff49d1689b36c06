package vesting

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/ledger"
)

// CallerLocal is the fiber local holding the caller identity.ID.
const CallerLocal = "caller_identity"

// Handler exposes vesting HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a vesting handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type deployRequest struct {
	Beneficiary     identity.ID `json:"beneficiary"`
	DurationSeconds uint64      `json:"duration_seconds"`
	Funding         uint64      `json:"funding"`
	ClientTxID      string      `json:"client_tx_id"`
}

type deploymentResponse struct {
	ID          string      `json:"id"`
	AccountCode string      `json:"account_code"`
	Beneficiary identity.ID `json:"beneficiary"`
	Controller  identity.ID `json:"controller"`
	StartTime   Timestamp   `json:"start_time"`
	Duration    Timestamp   `json:"duration_time"`
	EndTime     Timestamp   `json:"end_time"`
	Released    Amount      `json:"released_balance"`
	CreatedAt   string      `json:"created_at"`
}

func toResponse(d Deployment) deploymentResponse {
	end, _ := d.Ledger.EndTime()
	return deploymentResponse{
		ID:          d.ID(),
		AccountCode: d.AccountCode,
		Beneficiary: d.Ledger.Beneficiary,
		Controller:  d.Ledger.Controller,
		StartTime:   d.Ledger.StartTime,
		Duration:    d.Ledger.Duration,
		EndTime:     end,
		Released:    d.Ledger.ReleasedTotal,
		CreatedAt:   d.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// Deploy creates a vesting deployment owned by the calling identity.
func (h *Handler) Deploy(c *fiber.Ctx) error {
	caller, ok := c.Locals(CallerLocal).(identity.ID)
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "missing caller identity")
	}
	var req deployRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	d, err := h.service.Deploy(c.UserContext(), DeployInput{
		Beneficiary:     req.Beneficiary,
		DurationSeconds: req.DurationSeconds,
		Funding:         Amount(req.Funding),
		Caller:          caller,
		ClientTxID:      req.ClientTxID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(d))
}

// List returns all deployments.
func (h *Handler) List(c *fiber.Ctx) error {
	deployments, err := h.service.List(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]deploymentResponse, 0, len(deployments))
	for _, d := range deployments {
		out = append(out, toResponse(d))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"vestings": out})
}

// Status returns every query for a deployment evaluated at one instant.
func (h *Handler) Status(c *fiber.Ctx) error {
	st, err := h.service.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(st)
}

// Query evaluates one named query.
func (h *Handler) Query(c *fiber.Ctx) error {
	name := c.Params("query")
	v, err := h.service.Query(c.UserContext(), c.Params("id"), name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{name: v})
}

// Release pays out the releasable balance. Any caller may trigger it.
func (h *Handler) Release(c *fiber.Ctx) error {
	res, err := h.service.Release(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidBeneficiary), errors.Is(err, ErrInvalidFunding), errors.Is(err, identity.ErrInvalid):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownQuery):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrZeroReleasableBalance),
		errors.Is(err, ErrDuplicateDeployment),
		errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	case IsFault(err):
		return fiber.NewError(http.StatusInternalServerError, "vesting invariant fault")
	case errors.Is(err, ErrTransferFailed):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
