package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gigmarket/contract-hub/internal/core/ports"
)

// ContractHandler exposes proposal acceptance and contract reads.
type ContractHandler struct {
	service ports.ContractService
}

func NewContractHandler(service ports.ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

// Accept handles POST /proposals/:proposal_id/accept.
//
// Not idempotent: a repeated call for a job that already has a contract
// fails with 409 and must not be retried blindly.
//
// @Summary      Accept a proposal and create its contract
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        proposal_id  path      int  true  "Proposal id"
// @Success      201          {object}  contractResponse
// @Failure      400          {object}  errorResponse
// @Failure      401          {object}  errorResponse
// @Failure      403          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Failure      409          {object}  errorResponse
// @Router       /proposals/{proposal_id}/accept [post]
func (h *ContractHandler) Accept(c echo.Context) error {
	proposalID, err := pathID(c, "proposal_id")
	if err != nil {
		return err
	}
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	contract, err := h.service.Accept(c.Request().Context(), proposalID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toContractResponse(contract))
}

// List handles GET /contracts.
//
// @Summary      List the caller's contracts
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  contractListResponse
// @Failure      401  {object}  errorResponse
// @Router       /contracts [get]
func (h *ContractHandler) List(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	items, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContractList(items))
}

// Get handles GET /contracts/:contract_id.
//
// @Summary      Get a contract
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        contract_id  path      int  true  "Contract id"
// @Success      200          {object}  contractResponse
// @Failure      401          {object}  errorResponse
// @Failure      403          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Router       /contracts/{contract_id} [get]
func (h *ContractHandler) Get(c echo.Context) error {
	contractID, err := pathID(c, "contract_id")
	if err != nil {
		return err
	}
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	contract, err := h.service.Get(c.Request().Context(), contractID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContractResponse(contract))
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
