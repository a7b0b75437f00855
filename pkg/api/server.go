package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// List transactions where the account is source or target, newest first
	// (GET /transactions)
	ListTransactions(w http.ResponseWriter, r *http.Request, params ListTransactionsParams)
	// Deposit into an account
	// (POST /transactions/deposit)
	Deposit(w http.ResponseWriter, r *http.Request, params DepositParams)
	// Transfer between two accounts
	// (POST /transactions/transfer)
	Transfer(w http.ResponseWriter, r *http.Request, params TransferParams)
	// Withdraw from an account
	// (POST /transactions/withdraw)
	Withdraw(w http.ResponseWriter, r *http.Request, params WithdrawParams)
	// Get a transaction by ID
	// (GET /transactions/{transactionId})
	GetTransactionById(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID)
	// Liveness probe
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// ListTransactions operation middleware
func (siw *ServerInterfaceWrapper) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var err error
	var params ListTransactionsParams

	err = runtime.BindQueryParameter("form", true, true, "accountId", r.URL.Query(), &params.AccountId)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "accountId", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListTransactions(w, r, params)
	})
}

// Deposit operation middleware
func (siw *ServerInterfaceWrapper) Deposit(w http.ResponseWriter, r *http.Request) {
	key, ok := siw.idempotencyKey(w, r)
	if !ok {
		return
	}
	params := DepositParams{IdempotencyKey: key}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Deposit(w, r, params)
	})
}

// Withdraw operation middleware
func (siw *ServerInterfaceWrapper) Withdraw(w http.ResponseWriter, r *http.Request) {
	key, ok := siw.idempotencyKey(w, r)
	if !ok {
		return
	}
	params := WithdrawParams{IdempotencyKey: key}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Withdraw(w, r, params)
	})
}

// Transfer operation middleware
func (siw *ServerInterfaceWrapper) Transfer(w http.ResponseWriter, r *http.Request) {
	key, ok := siw.idempotencyKey(w, r)
	if !ok {
		return
	}
	params := TransferParams{IdempotencyKey: key}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Transfer(w, r, params)
	})
}

// GetTransactionById operation middleware
func (siw *ServerInterfaceWrapper) GetTransactionById(w http.ResponseWriter, r *http.Request) {
	var err error

	// ------------- Path parameter "transactionId" -------------
	var transactionId openapi_types.UUID

	err = runtime.BindStyledParameterWithOptions("simple", "transactionId", chi.URLParam(r, "transactionId"), &transactionId, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "transactionId", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetTransactionById(w, r, transactionId)
	})
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetHealth)
}

// idempotencyKey binds the required Idempotency-Key header.
func (siw *ServerInterfaceWrapper) idempotencyKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	valueList, found := r.Header[http.CanonicalHeaderKey("Idempotency-Key")]
	if !found {
		err := fmt.Errorf("Header parameter Idempotency-Key is required, but not found")
		siw.ErrorHandlerFunc(w, r, &RequiredHeaderError{ParamName: "Idempotency-Key", Err: err})
		return "", false
	}
	if n := len(valueList); n != 1 {
		siw.ErrorHandlerFunc(w, r, &TooManyValuesForParamError{ParamName: "Idempotency-Key", Count: n})
		return "", false
	}

	var key string
	err := runtime.BindStyledParameterWithOptions("simple", "Idempotency-Key", valueList[0], &key, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "Idempotency-Key", Err: err})
		return "", false
	}
	return key, true
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

type RequiredHeaderError struct {
	ParamName string
	Err       error
}

func (e *RequiredHeaderError) Error() string {
	return fmt.Sprintf("Header parameter %s is required, but not found", e.ParamName)
}

func (e *RequiredHeaderError) Unwrap() error {
	return e.Err
}

type TooManyValuesForParamError struct {
	ParamName string
	Count     int
}

func (e *TooManyValuesForParamError) Error() string {
	return fmt.Sprintf("Expected one value for %s, got %d", e.ParamName, e.Count)
}

// Handler creates http.Handler with routing matching OpenAPI spec.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux creates http.Handler with routing matching OpenAPI spec based on the provided mux.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/transactions", wrapper.ListTransactions)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/transactions/deposit", wrapper.Deposit)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/transactions/withdraw", wrapper.Withdraw)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/transactions/transfer", wrapper.Transfer)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/transactions/{transactionId}", wrapper.GetTransactionById)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})

	return r
}
