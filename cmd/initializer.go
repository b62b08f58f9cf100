package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"vznosBot/internal/config"
	"vznosBot/internal/handlers"
	"vznosBot/internal/jobqueue"
	"vznosBot/internal/repositories"
	"vznosBot/internal/services"
	"vznosBot/internal/telegram"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB

	groupRepo   *repositories.GroupRepository
	memberRepo  *repositories.MemberRepository
	invoiceRepo *repositories.InvoiceRepository
	paymentRepo *repositories.PaymentRepository
	auditRepo   *repositories.AuditRepository
	queue       *jobqueue.Queue

	billingService *services.BillingService
	dueCheck       *services.DueCheckService
	paymentService *services.PaymentService
	authService    *services.AuthService

	billingHandler *handlers.BillingHandler
	paymentHandler *handlers.PaymentHandler
	authHandler    *handlers.AuthHandler

	worker   *jobqueue.Worker
	listener *telegram.Listener
}

func initializeApp(cfg config.Config, db *sql.DB, rdb *redis.Client, errorLog, infoLog *log.Logger) *application {
	appLog := &leveledLogger{info: infoLog, err: errorLog}

	groupRepo := &repositories.GroupRepository{DB: db}
	memberRepo := &repositories.MemberRepository{DB: db}
	invoiceRepo := &repositories.InvoiceRepository{DB: db}
	paymentRepo := &repositories.PaymentRepository{DB: db}
	auditRepo := &repositories.AuditRepository{DB: db}
	queue := jobqueue.NewQueue(db, time.Duration(cfg.Queue.VisibilitySec)*time.Second)

	billingService := &services.BillingService{
		Groups:   groupRepo,
		Members:  memberRepo,
		Invoices: invoiceRepo,
		Queue:    queue,
	}
	paymentService := &services.PaymentService{
		Payments: paymentRepo,
		Invoices: invoiceRepo,
	}
	authService := &services.AuthService{
		PasswordHash: cfg.Admin.PasswordHash,
		JWTSecret:    cfg.Admin.JWTSecret,
	}

	var tgClient *telegram.Client
	var listener *telegram.Listener
	dueCheck := &services.DueCheckService{
		Invoices: invoiceRepo,
		Audit:    auditRepo,
		Logger:   appLog,
	}
	if cfg.Telegram.Token != "" {
		tgClient = telegram.NewClient(nil, cfg.Telegram.Token)
		dueCheck.Enforcer = tgClient
		listener = telegram.NewListener(tgClient, billingService, rdb, appLog, telegram.ListenerConfig{
			AllowedChatID:      cfg.Telegram.AllowedChatID,
			PollTimeoutSec:     cfg.Telegram.PollTimeoutSec,
			DefaultTimezone:    cfg.Billing.Timezone,
			DefaultDueDay:      cfg.Billing.DueDay,
			DefaultDueHour:     cfg.Billing.DueHour,
			DefaultAmountCents: cfg.Billing.AmountCents,
		})
	}

	worker := jobqueue.NewWorker(queue, appLog, jobqueue.Config{
		Tick:         time.Duration(cfg.Queue.TickSec) * time.Second,
		BatchSize:    cfg.Queue.BatchSize,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		RetryBackoff: time.Duration(cfg.Queue.RetryBackoffSec) * time.Second,
	})
	worker.Subscribe(services.JobDueCheck, dueCheck.HandleDueCheck)

	return &application{
		errorLog: errorLog,
		infoLog:  infoLog,
		db:       db,

		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		queue:       queue,

		billingService: billingService,
		dueCheck:       dueCheck,
		paymentService: paymentService,
		authService:    authService,

		billingHandler: &handlers.BillingHandler{Service: billingService},
		paymentHandler: &handlers.PaymentHandler{Service: paymentService, WebhookSecret: cfg.Payments.WebhookSecret},
		authHandler:    &handlers.AuthHandler{Service: authService},

		worker:   worker,
		listener: listener,
	}
}

func openDB(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	if err = db.Ping(); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		return nil, err
	}
	db.SetMaxIdleConns(35)
	log.Println("Successfully connected to database")
	return db, nil
}
