package quote_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/application/quote"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

func newConvertUC(s *memStore, l *fakeLocker) *quote.ConvertUseCase {
	return quote.NewConvertUseCase(s, l, 0, zerolog.Nop())
}

func convert(uc *quote.ConvertUseCase, quoteID string, req dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error) {
	return uc.Convert(context.Background(), companyA, quoteID, req)
}

func TestConvert_PrimeraFacturaParcial(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000.00")
	locker := newFakeLocker()

	res, err := convert(newConvertUC(s, locker), "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{30}})
	require.NoError(t, err)

	assert.Equal(t, "FAC", res.Prefix)
	assert.Equal(t, 1, res.Number)
	require.Len(t, res.Invoices, 1)
	assert.True(t, dec("300").Equal(res.Invoices[0].FinalTotalTTC))
	assert.Equal(t, "DRAFT", res.Invoices[0].Status)
	assert.Equal(t, 1, locker.released, "el lock se libera")
}

func TestConvert_RevalidaContraFacturasActuales(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000.00")
	s.addInvoice("q1", companyA, entity.InvoiceStatusPending, "300.00")

	_, err := convert(newConvertUC(s, newFakeLocker()), "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{95}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPercentageOutOfRange)

	var rej *quoting.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 70, rej.Ceiling)

	invoices, _ := s.Invoices().ListByQuoteID(context.Background(), "q1")
	assert.Len(t, invoices, 1, "no se crea ninguna factura")
}

func TestConvert_AnticipoSoloPrimera(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000")
	uc := newConvertUC(s, newFakeLocker())

	res, err := convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{20}, IsDeposit: true})
	require.NoError(t, err)
	assert.True(t, res.Invoices[0].IsDeposit)

	_, err = convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{20}, IsDeposit: true})
	assert.ErrorIs(t, err, domain.ErrDepositNotAllowed)
}

func TestConvert_TopeDeTresFacturas(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "999.99")
	uc := newConvertUC(s, newFakeLocker())

	_, err := convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{33}})
	require.NoError(t, err)
	_, err = convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{33}})
	require.NoError(t, err)

	// La tercera cierra el saldo exacto aunque se pida un porcentaje menor.
	res, err := convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{10}})
	require.NoError(t, err)
	assert.True(t, dec("339.99").Equal(res.Invoices[0].FinalTotalTTC), res.Invoices[0].FinalTotalTTC.String())

	_, err = convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{5}})
	assert.ErrorIs(t, err, domain.ErrInvoiceCapReached)
}

func TestConvert_DistribucionCompleta(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000")

	res, err := convert(newConvertUC(s, newFakeLocker()), "q1", dto.ConvertQuoteRequest{
		DistributionPercentages: []int{30, 30, 40},
		IsDeposit:               true,
		UseRemainingBalance:     true,
	})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 3)
	assert.Equal(t, res.Invoices[0].ID, res.InvoiceID)
	assert.Equal(t, []int{1, 2, 3}, []int{res.Invoices[0].Number, res.Invoices[1].Number, res.Invoices[2].Number})
	assert.True(t, dec("400").Equal(res.Invoices[2].FinalTotalTTC))
}

func TestConvert_SoloCotizacionesAceptadas(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusPending, "1000")

	_, err := convert(newConvertUC(s, newFakeLocker()), "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{30}})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestConvert_LockOcupado(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000")
	locker := newFakeLocker()
	_, err := locker.Obtain(context.Background(), "quote:convert:q1", 0)
	require.NoError(t, err)

	_, err = convert(newConvertUC(s, locker), "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{30}})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConvert_CotizacionIncompleta(t *testing.T) {
	s := newMemStore()
	q := s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000")
	q.Items = nil
	uc := newConvertUC(s, newFakeLocker())

	_, err := convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{30}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// skip_validation omite la completitud pero nunca las reglas de montos.
	_, err = convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{30}, SkipValidation: true})
	require.NoError(t, err)
	_, err = convert(uc, "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{96}, SkipValidation: true})
	assert.ErrorIs(t, err, domain.ErrPercentageOutOfRange)
}

func TestConvert_OtraEmpresa(t *testing.T) {
	s := newMemStore()
	s.seed("q1", "company-b", entity.QuoteStatusCompleted, "1000")
	_, err := convert(newConvertUC(s, newFakeLocker()), "q1", dto.ConvertQuoteRequest{DistributionPercentages: []int{30}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturas: avance de estado y efecto en el progreso
// ──────────────────────────────────────────────────────────────────────────────

func TestInvoiceStatus_CobroSaldaLaCotizacion(t *testing.T) {
	s := newMemStore()
	s.seed("q1", companyA, entity.QuoteStatusCompleted, "1000.00")
	a := s.addInvoice("q1", companyA, entity.InvoiceStatusPending, "600.00")
	b := s.addInvoice("q1", companyA, entity.InvoiceStatusDraft, "400.00")
	invUC := quote.NewInvoiceUseCase(s.Invoices(), s, zerolog.Nop())
	ctx := context.Background()

	_, err := invUC.UpdateStatus(ctx, companyA, a.ID, dto.UpdateInvoiceStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)
	_, err = invUC.UpdateStatus(ctx, companyA, b.ID, dto.UpdateInvoiceStatusRequest{Status: "COMPLETED"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "DRAFT no salta a COMPLETED")

	_, err = invUC.UpdateStatus(ctx, companyA, b.ID, dto.UpdateInvoiceStatusRequest{Status: "PENDING"})
	require.NoError(t, err)
	res, err := invUC.UpdateStatus(ctx, companyA, b.ID, dto.UpdateInvoiceStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Status)

	p, err := newQuoteUC(s).Progress(ctx, companyA, "q1")
	require.NoError(t, err)
	assert.True(t, p.IsFullyPaid)
	assert.True(t, dec("1000").Equal(p.CompletedAmount))
}

func TestInvoiceGet_NoExiste(t *testing.T) {
	invUC := quote.NewInvoiceUseCase(newMemStore().Invoices(), newMemStore(), zerolog.Nop())
	_, err := invUC.Get(context.Background(), companyA, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
