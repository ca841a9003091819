package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/p2c"
	"github.com/taquillave/p2c-gateway/internal/adapters/postgres"
	"github.com/taquillave/p2c-gateway/internal/adapters/secrets"
	"github.com/taquillave/p2c-gateway/internal/config"
	"github.com/taquillave/p2c-gateway/internal/domain"
	"github.com/taquillave/p2c-gateway/internal/services/collect"
)

// gatewayCLI drives one command against the configured gateway environment
type gatewayCLI struct {
	ctx    context.Context
	cfg    *config.Config
	client *p2c.Client
	logger *zap.Logger
}

func main() {
	var (
		action    = flag.String("action", "", "Action to perform: preregister, collect, query, status, recover")
		phone     = flag.String("phone", "", "Customer mobile number (e.g. 0412-1234567)")
		bank      = flag.String("bank", "", "Customer bank code (e.g. 0102 or 102)")
		cid       = flag.String("cid", "", "Customer national id (e.g. V12345678)")
		amount    = flag.String("amount", "", "Amount in bolivars (e.g. 150.75)")
		invoice   = flag.String("invoice", "", "Invoice number (generated when empty)")
		reference = flag.String("reference", "", "Reference number (generated when empty)")
		control   = flag.String("control", "", "Control number from pre-registration")
		timeout   = flag.Duration("timeout", 2*time.Minute, "Overall command timeout")
	)
	flag.Parse()

	if *action == "" {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := buildClient(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build gateway client", zap.Error(err))
	}

	cli := &gatewayCLI{
		ctx:    ctx,
		cfg:    cfg,
		client: client,
		logger: logger,
	}

	switch *action {
	case "preregister":
		cli.preregister()
	case "collect":
		cli.collect(*phone, *bank, *cid, *amount, *invoice, *reference)
	case "query":
		cli.query(*control)
	case "status":
		cli.status(*invoice)
	case "recover":
		cli.recoverPending()
	default:
		fmt.Printf("Unknown action: %s\n", *action)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: p2cctl -action=<action> [options]")
	fmt.Println("Actions:")
	fmt.Println("  preregister - Open a debit conversation and print the control number")
	fmt.Println("  collect     - Run the full flow: pre-register, authorize, settle in the ledger")
	fmt.Println("  query       - Ask the gateway what became of a purchase (-control)")
	fmt.Println("  status      - Read a payment from the ledger (-invoice)")
	fmt.Println("  recover     - Sweep unresolved ledger rows and settle what the gateway answers")
	fmt.Println()
	fmt.Println("Configuration comes from P2C_* environment variables or a .env file;")
	fmt.Println("see internal/config. collect, status, and recover need P2C_DATABASE__URL.")
}

// buildClient resolves credentials through the configured secrets backend
// and constructs the gateway client for the selected environment.
func buildClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*p2c.Client, error) {
	sm, err := secrets.NewFromConfig(ctx, secrets.Config{
		Backend:      cfg.Secrets.Backend,
		Prefix:       cfg.Secrets.Prefix,
		AWSRegion:    cfg.Secrets.AWSRegion,
		VaultAddress: cfg.Secrets.VaultAddress,
		VaultToken:   cfg.Secrets.VaultToken,
		CacheTTL:     cfg.Secrets.CacheTTL,
	}, logger)
	if err != nil {
		return nil, err
	}

	profile := cfg.Profile()
	if err := secrets.LoadGatewayCredentials(ctx, sm, &profile); err != nil {
		return nil, err
	}

	return p2c.NewDefaultClient(profile, logger)
}

// ledgerService connects to the payments ledger and wires the collect
// service around it. Only the actions that touch the ledger pay for this.
func (cli *gatewayCLI) ledgerService() *collect.Service {
	if cli.cfg.Database.URL == "" {
		cli.logger.Fatal("This action needs the payments ledger; set P2C_DATABASE__URL")
	}

	db, err := postgres.NewDB(cli.ctx, cli.cfg.PostgresConfig(), cli.logger)
	if err != nil {
		cli.logger.Fatal("Failed to connect to payments ledger", zap.Error(err))
	}

	repo := postgres.NewPaymentsRepository(db.Pool())
	return collect.NewService(cli.client, repo, cli.logger, collect.DefaultOptions(cli.cfg.Environment))
}

func (cli *gatewayCLI) preregister() {
	reg, err := cli.client.PreRegister(cli.ctx)
	if err != nil {
		cli.fatal("Pre-registration failed", err)
	}
	printJSON(reg)
}

func (cli *gatewayCLI) collect(phone, bank, cid, amount, invoice, reference string) {
	if phone == "" || bank == "" || cid == "" || amount == "" {
		fmt.Println("collect requires -phone, -bank, -cid, and -amount")
		os.Exit(1)
	}

	amt, err := p2c.ParseAmount(amount)
	if err != nil {
		cli.fatal("Invalid amount", err)
	}

	service := cli.ledgerService()

	payment, err := service.Collect(cli.ctx, collect.Request{
		Invoice:       invoice,
		Reference:     reference,
		CustomerPhone: phone,
		CustomerBank:  bank,
		CustomerID:    cid,
		Amount:        amt,
	})
	if err != nil {
		cli.fatal("Collection failed", err)
	}

	// Declines land here too: the gateway answered, the answer is the result.
	printJSON(payment)
}

func (cli *gatewayCLI) query(control string) {
	if control == "" {
		fmt.Println("query requires -control")
		os.Exit(1)
	}

	result, err := cli.client.QueryStatus(cli.ctx, p2c.StatusQuery{Control: control})
	if err != nil {
		cli.fatal("Status query failed", err)
	}
	printJSON(result)
}

func (cli *gatewayCLI) status(invoice string) {
	if invoice == "" {
		fmt.Println("status requires -invoice")
		os.Exit(1)
	}

	payment, err := cli.ledgerService().Status(cli.ctx, invoice)
	if err != nil {
		cli.fatal("Status lookup failed", err)
	}
	printJSON(payment)
}

func (cli *gatewayCLI) recoverPending() {
	settled, err := cli.ledgerService().RecoverPending(cli.ctx)
	if err != nil {
		cli.fatal("Recovery sweep failed", err)
	}
	fmt.Printf("Settled %d unresolved payment(s)\n", settled)
}

// fatal logs a domain error with its code and details before exiting
func (cli *gatewayCLI) fatal(msg string, err error) {
	fields := []zap.Field{zap.Error(err)}
	if code := domain.GetErrorCode(err); code != "" {
		fields = append(fields, zap.String("code", string(code)))
	}
	if details := domain.GetErrorDetails(err); len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	cli.logger.Fatal(msg, fields...)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal("Failed to encode output: ", err)
	}
}
