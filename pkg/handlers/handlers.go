package handlers

import (
	"net/http"

	"github.com/chris/transaction-orchestrator/pkg/api"
	"github.com/chris/transaction-orchestrator/pkg/handlers/transactions"
	"github.com/chris/transaction-orchestrator/pkg/orchestrator"
	"github.com/chris/transaction-orchestrator/pkg/respond"
)

// ApiHandler implements the api.ServerInterface by composing the resource handlers.
type ApiHandler struct {
	*transactions.TransactionsHandler
}

// NewApiHandler creates a new ApiHandler backed by the orchestrator service.
func NewApiHandler(service orchestrator.Service) *ApiHandler {
	return &ApiHandler{
		TransactionsHandler: transactions.NewTransactionsHandler(service),
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// GetHealth reports that the process is serving requests.
func (h *ApiHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, api.Health{Status: "ok"})
}

// ParamErrorHandler answers parameter binding failures (missing Idempotency-Key, malformed IDs) with a JSON 400.
func ParamErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, http.StatusBadRequest, err.Error())
}
