// quotectl convierte cotizaciones en facturas desde la terminal y sigue el
// avance de facturación contra la API.
//
//	quotectl show    <quote-id>
//	quotectl convert <quote-id> [--percentage N] [--deposit] [--remaining] [--skip-validation]
//	quotectl status  <quote-id> <MARK_AS_SENT|MARK_AS_ACCEPTED|CANCEL>
//	quotectl watch   <quote-id> [--interval 2s]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jhoicas/Cotizaciones-api/internal/application/conversion"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
	"github.com/jhoicas/Cotizaciones-api/internal/infrastructure/apiclient"
	"github.com/jhoicas/Cotizaciones-api/internal/interfaces/cli"
	"github.com/jhoicas/Cotizaciones-api/pkg/config"
	"github.com/jhoicas/Cotizaciones-api/pkg/jwt"
	"github.com/jhoicas/Cotizaciones-api/pkg/logger"
)

type flags struct {
	baseURL        string
	token          string
	locale         string
	logLevel       string
	timeout        time.Duration
	interval       time.Duration
	percentage     int
	deposit        bool
	remaining      bool
	skipValidation bool
	userID         string
	companyID      string
	role           string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "quotectl:", err)
		}
		os.Exit(1)
	}
}

// errReported el Notifier ya mostró el error.
var errReported = errors.New("reportado")

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var f flags
	fs := pflag.NewFlagSet("quotectl", pflag.ContinueOnError)
	fs.StringVar(&f.baseURL, "api", cfg.Client.BaseURL, "URL base de la API")
	fs.StringVar(&f.token, "token", cfg.Client.Token, "Bearer JWT (por defecto API_TOKEN)")
	fs.StringVar(&f.locale, "locale", cfg.Client.Locale, "locale para montos y mensajes")
	fs.StringVar(&f.logLevel, "log-level", "warn", "nivel de log en stderr")
	fs.DurationVar(&f.timeout, "timeout", cfg.Client.Timeout, "timeout por petición")
	fs.DurationVar(&f.interval, "interval", cfg.Billing.PollInterval, "intervalo de watch")
	fs.IntVarP(&f.percentage, "percentage", "p", 0, "porcentaje de la factura (por defecto, el propuesto)")
	fs.BoolVar(&f.deposit, "deposit", false, "factura de anticipo (solo la primera)")
	fs.BoolVar(&f.remaining, "remaining", false, "facturar el saldo restante")
	fs.BoolVar(&f.skipValidation, "skip-validation", false, "omitir chequeos de completitud del servidor")
	fs.StringVar(&f.userID, "user", "", "user id para firmar un token de servicio con JWT_SECRET")
	fs.StringVar(&f.companyID, "company", "", "company id para el token de servicio")
	fs.StringVar(&f.role, "role", "contador", "rol del token de servicio")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "uso: quotectl [flags] show|convert|status|watch <quote-id> [acción]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		return errors.New("faltan argumentos")
	}
	cmd, quoteID := rest[0], rest[1]

	token, err := resolveToken(f, cfg)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: f.logLevel, Out: os.Stderr})

	client, err := apiclient.New(apiclient.Options{
		BaseURL:  f.baseURL,
		Token:    token,
		Timeout:  f.timeout,
		CacheTTL: cfg.Client.CacheTTL,
		Logger:   log.Zerolog(),
	})
	if err != nil {
		return err
	}

	printer := cli.NewPrinter(f.locale)
	notifier := cli.NewNotifier(os.Stdout, printer)
	zl := log.Zerolog()
	orch, err := conversion.New(conversion.Options{
		QuoteID:           quoteID,
		Reader:            client,
		Writer:            client,
		StatusWriter:      client,
		Notifier:          notifier,
		Logger:            zl,
		DefaultPercentage: cfg.Billing.DefaultPercentage,
		OnTransition: func(from, to conversion.State) {
			zl.Debug().Str("from", string(from)).Str("to", string(to)).Msg("diálogo")
		},
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "show":
		v, err := orch.Open(ctx)
		if err != nil {
			return errReported
		}
		notifier.Println(printer.Proposal(v))
		return nil

	case "convert":
		v, err := orch.Open(ctx)
		if err != nil {
			return errReported
		}
		in := v.Input
		if fs.Changed("percentage") {
			in.Percentage = f.percentage
		}
		if f.deposit {
			in.Kind = entity.InvoiceKindDeposit
		}
		in.UseRemainingBalance = in.UseRemainingBalance || f.remaining
		in.SkipValidation = f.skipValidation
		if _, err := orch.Submit(ctx, in); err != nil {
			return errReported
		}
		return nil

	case "status":
		if len(rest) < 3 {
			return errors.New("status requiere la acción")
		}
		action, err := quoting.ParseAction(rest[2])
		if err != nil {
			return err
		}
		if _, err := orch.Open(ctx); err != nil {
			return errReported
		}
		if _, err := orch.ChangeStatus(ctx, action); err != nil {
			return errReported
		}
		return nil

	case "watch":
		return watch(ctx, orch, notifier, printer, f.interval)
	}
	fs.Usage()
	return fmt.Errorf("comando desconocido %q", cmd)
}

// watch imprime el avance a cada lectura hasta Ctrl+C o hasta que la
// cotización queda totalmente pagada.
func watch(ctx context.Context, orch *conversion.Orchestrator, n *cli.Notifier, p *cli.Printer, interval time.Duration) error {
	paid := make(chan struct{})
	var closed bool
	err := orch.StartPolling(interval, func(u conversion.PollUpdate) {
		n.Println(p.Poll(u))
		if u.FullyPaid && !closed {
			closed = true
			close(paid)
		}
	})
	if err != nil {
		return err
	}
	defer orch.StopPolling()

	select {
	case <-ctx.Done():
	case <-paid:
	}
	return nil
}

// resolveToken usa --token / API_TOKEN; si no hay y se indicó --company, firma
// un token de servicio con JWT_SECRET.
func resolveToken(f flags, cfg *config.Config) (string, error) {
	if f.token != "" {
		return f.token, nil
	}
	if f.companyID == "" {
		return "", errors.New("sin token: use --token, API_TOKEN o --company con JWT_SECRET")
	}
	if cfg.JWT.Secret == "" {
		return "", errors.New("JWT_SECRET requerido para firmar el token de servicio")
	}
	userID := f.userID
	if userID == "" {
		userID = "quotectl"
	}
	return jwt.Generate(cfg.JWT.Secret, userID, f.companyID, f.role, cfg.JWT.Issuer, cfg.JWT.Expiration)
}
