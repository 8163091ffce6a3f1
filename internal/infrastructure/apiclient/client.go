// Package apiclient implementa los puertos del orquestador de conversión
// (QuoteReader, ConversionWriter, StatusWriter) sobre la API HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Cotizaciones-api/internal/application/conversion"
	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

var (
	_ conversion.QuoteReader      = (*Client)(nil)
	_ conversion.ConversionWriter = (*Client)(nil)
	_ conversion.StatusWriter     = (*Client)(nil)
)

const dateLayout = "2006-01-02"

// Options configuración del cliente.
type Options struct {
	BaseURL  string
	Token    string        // Bearer JWT
	Timeout  time.Duration // por petición; 0 = 10s
	CacheTTL time.Duration // 0 = sin cache
	Logger   zerolog.Logger
}

// Client cliente HTTP con cache de lecturas por cotización.
// Las lecturas con BypassCache van siempre al servidor con Cache-Control: no-cache.
type Client struct {
	base    string
	token   string
	timeout time.Duration
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	quote   entity.Quote
	expires time.Time
}

// New construye el cliente.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: base url inválida %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		timeout: opts.Timeout,
		ttl:     opts.CacheTTL,
		log:     opts.Logger.With().Str("component", "apiclient").Logger(),
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}, nil
}

// FetchQuote GET /api/quotes/:id.
func (c *Client) FetchQuote(ctx context.Context, quoteID string, opts conversion.FetchOptions) (*entity.Quote, error) {
	if !opts.BypassCache {
		if q, ok := c.cached(quoteID); ok {
			return q, nil
		}
	}
	var res dto.QuoteResponse
	if err := c.do(ctx, fiber.MethodGet, "/api/quotes/"+url.PathEscape(quoteID), nil, opts.BypassCache, &res); err != nil {
		return nil, err
	}
	q, err := toQuote(&res)
	if err != nil {
		return nil, err
	}
	c.store(quoteID, q)
	return q, nil
}

// ConvertQuoteToInvoice POST /api/quotes/:id/invoices.
func (c *Client) ConvertQuoteToInvoice(ctx context.Context, quoteID string, req conversion.ConversionRequest) (*conversion.ConversionResult, error) {
	body := dto.ConvertQuoteRequest{
		DistributionPercentages: req.DistributionPercentages,
		IsDeposit:               req.IsDeposit,
		UseRemainingBalance:     req.UseRemainingBalance,
		SkipValidation:          req.SkipValidation,
	}
	var res dto.ConvertQuoteResponse
	err := c.do(ctx, fiber.MethodPost, "/api/quotes/"+url.PathEscape(quoteID)+"/invoices", body, true, &res)
	c.invalidate(quoteID)
	if err != nil {
		return nil, err
	}
	return &conversion.ConversionResult{InvoiceID: res.InvoiceID, Number: res.Number, Prefix: res.Prefix}, nil
}

// ChangeQuoteStatus PATCH /api/quotes/:id/status.
func (c *Client) ChangeQuoteStatus(ctx context.Context, quoteID string, status entity.QuoteStatus) (entity.QuoteStatus, error) {
	var res dto.QuoteStatusResponse
	err := c.do(ctx, fiber.MethodPatch, "/api/quotes/"+url.PathEscape(quoteID)+"/status",
		dto.ChangeQuoteStatusRequest{Status: string(status)}, true, &res)
	c.invalidate(quoteID)
	if err != nil {
		return "", err
	}
	return entity.ParseQuoteStatus(res.Status)
}

type response struct {
	code int
	body []byte
	err  error
}

// do ejecuta la petición en un Agent de fiber. El Agent no recibe ctx: si ctx
// termina antes se devuelve ctx.Err() y la petición sigue hasta su timeout.
func (c *Client) do(ctx context.Context, method, path string, in any, noCache bool, out any) error {
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.base + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	agent.Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if noCache {
		agent.Set(fiber.HeaderCacheControl, "no-cache")
	}
	if in != nil {
		agent.JSON(in)
	}

	done := make(chan response, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- response{code: code, body: body, err: errors.Join(errs...)}
	}()

	var r response
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		c.log.Debug().Err(r.err).Str("method", method).Str("path", path).Msg("petición fallida")
		return fmt.Errorf("apiclient: %s %s: %w", method, path, r.err)
	}
	if r.code < 200 || r.code > 299 {
		return remoteError(r.code, r.body)
	}
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("apiclient: decodificar respuesta de %s: %w", path, err)
	}
	return nil
}

// remoteError convierte el cuerpo de error de la API; el mensaje pasa sin cambios.
func remoteError(status int, body []byte) error {
	var er dto.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || (er.Code == "" && er.Message == "") {
		return &conversion.RemoteError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return &conversion.RemoteError{Status: status, Code: er.Code, Message: er.Message}
}

func (c *Client) cached(quoteID string) (*entity.Quote, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[quoteID]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	q := e.quote
	q.LinkedInvoices = append([]entity.LinkedInvoice(nil), e.quote.LinkedInvoices...)
	return &q, true
}

func (c *Client) store(quoteID string, q *entity.Quote) {
	if c.ttl <= 0 {
		return
	}
	cp := *q
	cp.LinkedInvoices = append([]entity.LinkedInvoice(nil), q.LinkedInvoices...)
	c.mu.Lock()
	c.cache[quoteID] = cacheEntry{quote: cp, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Client) invalidate(quoteID string) {
	c.mu.Lock()
	delete(c.cache, quoteID)
	c.mu.Unlock()
}

func toQuote(r *dto.QuoteResponse) (*entity.Quote, error) {
	status, err := entity.ParseQuoteStatus(r.Status)
	if err != nil {
		return nil, err
	}
	q := &entity.Quote{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		ClientName:    r.ClientName,
		Prefix:        r.Prefix,
		Number:        r.Number,
		Status:        status,
		TotalHT:       r.TotalHT,
		TotalVAT:      r.TotalVAT,
		TotalTTC:      r.TotalTTC,
		FinalTotalHT:  r.FinalTotalHT,
		FinalTotalTTC: r.FinalTotalTTC,
	}
	if r.IssueDate != "" {
		if q.IssueDate, err = time.Parse(dateLayout, r.IssueDate); err != nil {
			return nil, fmt.Errorf("issue_date: %w", err)
		}
	}
	if r.ValidUntil != "" {
		if q.ValidUntil, err = time.Parse(dateLayout, r.ValidUntil); err != nil {
			return nil, fmt.Errorf("valid_until: %w", err)
		}
	}
	if r.Discount != nil {
		q.Discount = entity.Discount{Type: r.Discount.Type, Value: r.Discount.Value}
	}
	for _, it := range r.Items {
		q.Items = append(q.Items, entity.QuoteItem{
			ID:          it.ID,
			QuoteID:     r.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
		})
	}
	q.LinkedInvoices = make([]entity.LinkedInvoice, 0, len(r.LinkedInvoices))
	for _, l := range r.LinkedInvoices {
		st, err := entity.ParseInvoiceStatus(l.Status)
		if err != nil {
			return nil, err
		}
		q.LinkedInvoices = append(q.LinkedInvoices, entity.LinkedInvoice{
			ID:            l.ID,
			Prefix:        l.Prefix,
			Number:        l.Number,
			Status:        st,
			FinalTotalTTC: l.FinalTotalTTC,
			IsDeposit:     l.IsDeposit,
		})
	}
	return q, nil
}
