package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
	apphttp "github.com/jhoicas/Cotizaciones-api/internal/interfaces/http"
)

// stubQuotes implementa QuoteService y ConvertService; los métodos no
// configurados devuelven domain.ErrNotFound.
type stubQuotes struct {
	companyID string
	convertIn dto.ConvertQuoteRequest
	convert   func(in dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error)
	get       func(id string) (*dto.QuoteResponse, error)
	status    func(in dto.ChangeQuoteStatusRequest) (*dto.QuoteStatusResponse, error)
	update    func(in dto.UpdateQuoteRequest) (*dto.QuoteResponse, error)
}

func (s *stubQuotes) Create(_ context.Context, companyID string, in dto.CreateQuoteRequest) (*dto.QuoteResponse, error) {
	s.companyID = companyID
	return &dto.QuoteResponse{ID: "q-new", ClientName: in.ClientName, Status: "DRAFT"}, nil
}

func (s *stubQuotes) Update(_ context.Context, companyID, _ string, in dto.UpdateQuoteRequest) (*dto.QuoteResponse, error) {
	s.companyID = companyID
	if s.update == nil {
		return nil, domain.ErrNotFound
	}
	return s.update(in)
}

func (s *stubQuotes) Get(_ context.Context, companyID, id string) (*dto.QuoteResponse, error) {
	s.companyID = companyID
	if s.get == nil {
		return nil, domain.ErrNotFound
	}
	return s.get(id)
}

func (s *stubQuotes) Progress(context.Context, string, string) (*dto.ProgressResponse, error) {
	return &dto.ProgressResponse{QuoteID: "q1", InvoicedAmount: decimal.RequireFromString("300")}, nil
}

func (s *stubQuotes) Allocation(_ context.Context, _, id string, hint int) (*dto.AllocationResponse, error) {
	return &dto.AllocationResponse{QuoteID: id, Percentage: hint}, nil
}

func (s *stubQuotes) Actions(context.Context, string, string) (*dto.ActionsResponse, error) {
	return nil, domain.ErrForbidden
}

func (s *stubQuotes) ChangeStatus(_ context.Context, _, _ string, in dto.ChangeQuoteStatusRequest) (*dto.QuoteStatusResponse, error) {
	if s.status == nil {
		return nil, domain.ErrNotFound
	}
	return s.status(in)
}

func (s *stubQuotes) Delete(context.Context, string, string) error {
	return fmt.Errorf("%w: la cotización tiene facturas vinculadas", domain.ErrConflict)
}

func (s *stubQuotes) Convert(_ context.Context, _, _ string, in dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error) {
	s.convertIn = in
	if s.convert == nil {
		return nil, domain.ErrNotFound
	}
	return s.convert(in)
}

type stubInvoices struct{}

func (stubInvoices) Get(_ context.Context, _, id string) (*dto.InvoiceResponse, error) {
	return &dto.InvoiceResponse{ID: id, Status: "DRAFT"}, nil
}

func (stubInvoices) UpdateStatus(_ context.Context, _, _ string, in dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error) {
	return nil, fmt.Errorf("%w: factura DRAFT → %s", domain.ErrInvalidTransition, in.Status)
}

type stubSummary struct{}

func (stubSummary) GetSummary(context.Context, string) (*dto.DashboardSummaryDTO, error) {
	return nil, fmt.Errorf("db caída")
}

func newAPI(s *stubQuotes) *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Quotes:    s,
		Convert:   s,
		Invoices:  stubInvoices{},
		Summary:   stubSummary{},
		JWTSecret: testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) (*http.Response, dto.ErrorResponse) {
	t.Helper()
	auth := ""
	if role != "" {
		auth = tokenForRole(t, role)
	}
	return callAuth(t, app, method, path, auth, body)
}

// callAuth como call pero con el header Authorization tal cual.
func callAuth(t *testing.T, app *fiber.App, method, path, auth, body string) (*http.Response, dto.ErrorResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var er dto.ErrorResponse
	if resp.StatusCode >= 400 {
		_ = json.NewDecoder(resp.Body).Decode(&er)
	}
	return resp, er
}

func TestHealth_SinToken(t *testing.T) {
	resp, _ := call(t, newAPI(&stubQuotes{}), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQuotes_RequiereToken(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodGet, "/api/quotes/q1", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", er.Code)
}

func TestGetQuote_NoCacheYEmpresaDelToken(t *testing.T) {
	s := &stubQuotes{get: func(id string) (*dto.QuoteResponse, error) {
		return &dto.QuoteResponse{ID: id, Status: "COMPLETED"}, nil
	}}
	resp, _ := call(t, newAPI(s), http.MethodGet, "/api/quotes/q1", "lector", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, testCompanyID, s.companyID)
}

func TestGetQuote_NoExiste(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodGet, "/api/quotes/nope", "admin", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", er.Code)
}

func TestCreateQuote_Validacion(t *testing.T) {
	app := newAPI(&stubQuotes{})

	resp, er := call(t, app, http.MethodPost, "/api/quotes", "admin", `{"client_name":"ACME","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", er.Code)

	resp, er = call(t, app, http.MethodPost, "/api/quotes", "admin", `{"client_name":"ACME","issue_date":"01/02/2024",
		"items":[{"description":"x","quantity":"1","unit_price":"10","vat_rate":"19"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, er.Message, "IssueDate")

	resp, _ = call(t, app, http.MethodPost, "/api/quotes", "contador",
		`{"client_name":"ACME","items":[{"description":"x","quantity":"1","unit_price":"10","vat_rate":"19"}]}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateQuote_LectorNoEscribe(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodPost, "/api/quotes", "lector",
		`{"client_name":"ACME","items":[{"description":"x","quantity":"1","unit_price":"10","vat_rate":"19"}]}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", er.Code)
}

func TestConvert_RechazoConDetalle(t *testing.T) {
	s := &stubQuotes{convert: func(in dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error) {
		return nil, &quoting.RejectionError{
			Code: quoting.CodePercentageOutOfRange, Err: domain.ErrPercentageOutOfRange,
			Requested: 80, Min: 5, Ceiling: 70,
		}
	}}
	resp, er := call(t, newAPI(s), http.MethodPost, "/api/quotes/q1/invoices", "admin",
		`{"distribution_percentages":[80]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, quoting.CodePercentageOutOfRange, er.Code)
	assert.Equal(t, map[string]int{"requested": 80, "min": 5, "ceiling": 70}, er.Details)
	assert.Contains(t, er.Message, "70")
}

func TestConvert_TopeSinDetalle(t *testing.T) {
	s := &stubQuotes{convert: func(dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error) {
		return nil, &quoting.RejectionError{Code: quoting.CodeInvoiceCapReached, Err: domain.ErrInvoiceCapReached}
	}}
	resp, er := call(t, newAPI(s), http.MethodPost, "/api/quotes/q1/invoices", "admin",
		`{"distribution_percentages":[30]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, quoting.CodeInvoiceCapReached, er.Code)
	assert.Nil(t, er.Details)
}

func TestConvert_DistribucionInvalida(t *testing.T) {
	s := &stubQuotes{}
	app := newAPI(s)
	for _, body := range []string{
		`{"distribution_percentages":[]}`,
		`{"distribution_percentages":[30,30,20,20]}`,
		`{"distribution_percentages":[0]}`,
		`{"distribution_percentages":[101]}`,
	} {
		resp, er := call(t, app, http.MethodPost, "/api/quotes/q1/invoices", "admin", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "VALIDATION", er.Code, body)
	}
	assert.Nil(t, s.convertIn.DistributionPercentages, "no llega al caso de uso")
}

func TestConvert_Creada(t *testing.T) {
	s := &stubQuotes{convert: func(in dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error) {
		return &dto.ConvertQuoteResponse{InvoiceID: "i1", Number: 1, Prefix: "FAC"}, nil
	}}
	resp, _ := call(t, newAPI(s), http.MethodPost, "/api/quotes/q1/invoices", "contador",
		`{"distribution_percentages":[30,70],"is_deposit":true,"use_remaining_balance":true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out dto.ConvertQuoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "i1", out.InvoiceID)
	assert.Equal(t, []int{30, 70}, s.convertIn.DistributionPercentages)
	assert.True(t, s.convertIn.IsDeposit)
	assert.True(t, s.convertIn.UseRemainingBalance)
}

func TestChangeStatus_TransicionInvalida(t *testing.T) {
	s := &stubQuotes{status: func(in dto.ChangeQuoteStatusRequest) (*dto.QuoteStatusResponse, error) {
		return nil, &quoting.TransitionError{From: "DRAFT", Action: quoting.ActionMarkAsAccepted}
	}}
	app := newAPI(s)

	resp, er := call(t, app, http.MethodPatch, "/api/quotes/q1/status", "admin", `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", er.Code)

	resp, er = call(t, app, http.MethodPatch, "/api/quotes/q1/status", "admin", `{"status":"DRAFT"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "DRAFT no es un destino válido")
	assert.Equal(t, "VALIDATION", er.Code)
}

func TestUpdateQuote_EdicionYEstado(t *testing.T) {
	var got dto.UpdateQuoteRequest
	s := &stubQuotes{update: func(in dto.UpdateQuoteRequest) (*dto.QuoteResponse, error) {
		got = in
		if in.Items == nil {
			return nil, &quoting.TransitionError{From: "COMPLETED", Action: quoting.ActionEdit}
		}
		return &dto.QuoteResponse{ID: "q1", ClientName: *in.ClientName, Status: "DRAFT"}, nil
	}}
	app := newAPI(s)

	resp, _ := call(t, app, http.MethodPatch, "/api/quotes/q1", "contador",
		`{"client_name":"Globex","items":[{"description":"x","quantity":"2","unit_price":"10","vat_rate":"19"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.QuoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Globex", out.ClientName)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.RequireFromString("2").Equal(got.Items[0].Quantity))
	assert.Equal(t, testCompanyID, s.companyID)

	resp, er := call(t, app, http.MethodPatch, "/api/quotes/q1", "admin", `{"client_name":"Globex"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", er.Code)

	resp, er = call(t, app, http.MethodPatch, "/api/quotes/q1", "admin", `{"valid_until":"31/12/2026"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", er.Code)

	resp, er = call(t, app, http.MethodPatch, "/api/quotes/q1", "lector", `{"client_name":"Globex"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", er.Code)
}

func TestDeleteQuote_ConFacturas(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodDelete, "/api/quotes/q1", "admin", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", er.Code)
}

func TestAllocation_Pista(t *testing.T) {
	resp, _ := call(t, newAPI(&stubQuotes{}), http.MethodGet, "/api/quotes/q1/allocation?hint=45", "lector", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.AllocationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 45, out.Percentage)
}

func TestActions_OtraEmpresa(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodGet, "/api/quotes/q1/actions", "lector", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", er.Code)
}

func TestInvoiceStatus_Retroceso(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodPatch, "/api/invoices/i1/status", "admin", `{"status":"PENDING"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", er.Code)
}

func TestDashboard_ErrorInternoSinDetalle(t *testing.T) {
	resp, er := call(t, newAPI(&stubQuotes{}), http.MethodGet, "/api/dashboard/summary", "admin", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL", er.Code)
	assert.NotContains(t, er.Message, "db caída")
}
