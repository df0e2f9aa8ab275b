package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/slotwise/slotwise/api"
	"github.com/slotwise/slotwise/config"
	"github.com/slotwise/slotwise/db"
	"github.com/slotwise/slotwise/middleware"
	"github.com/slotwise/slotwise/notify"
	"github.com/slotwise/slotwise/providers"
	"github.com/slotwise/slotwise/services"
	"github.com/slotwise/slotwise/stores"
	"github.com/slotwise/slotwise/workers"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorBold   = "\033[1m"
)

func printStep(step, message string) {
	fmt.Printf("%s[%s]%s %s%s%s\n", colorBlue, step, colorReset, colorBold, message, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

func printWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

func printError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

func main() {
	printStep("1/7", "Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError(fmt.Sprintf("Configuration validation failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Configuration loaded")

	printStep("2/7", "Connecting to database...")
	database, err := db.Setup(cfg)
	if err != nil {
		printError(fmt.Sprintf("Database setup failed: %v", err))
		os.Exit(1)
	}
	sqlDB, err := database.DB()
	if err != nil {
		printError(fmt.Sprintf("Failed to get database instance: %v", err))
		os.Exit(1)
	}
	defer sqlDB.Close()
	printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d, schema up to date", cfg.Database.Host, cfg.Database.Port))

	printStep("3/7", "Initializing payment processor...")
	var processor providers.PaymentProcessor
	switch cfg.PaymentProvider {
	case "xendit":
		processor = providers.NewXenditProcessor(cfg.Xendit.Secret, cfg.Xendit.CallbackToken)
	default:
		processor = providers.NewStripeProcessor(cfg.Stripe.Secret, cfg.Stripe.WebhookSecret)
	}
	wrapped := providers.WrapProcessor(processor)
	defer wrapped.Close()
	printSuccess(fmt.Sprintf("Payment processor ready: %s", processor.Name()))

	printStep("4/7", "Initializing stores and services...")
	appointmentStore := stores.CreateAppointmentStore(database)
	paymentStore := stores.CreatePaymentStore(database)
	jobStore := stores.CreateNotificationJobStore(database)
	eventStore := stores.CreateProcessedEventStore(database)

	bookingService := services.NewBookingService(appointmentStore, jobStore, services.BookingOptions{
		MaxAttempts: cfg.Booking.MaxAttempts,
		BaseDelay:   cfg.Booking.BaseDelay,
		TxTimeout:   cfg.Booking.TxTimeout,
	})
	refundService := services.NewRefundService(appointmentStore, paymentStore, wrapped, jobStore, cfg.Booking.RefundCutoffHours)
	paymentEventService := services.NewPaymentEventService(paymentStore, appointmentStore)
	printSuccess("Stores and services initialized")

	printStep("5/7", "Starting notification worker...")
	sender := notify.NewMultiChannelSender(
		notify.NewSMTPEmailSender(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.EmailFrom),
		notify.NewWebhookSMSSender(cfg.Notify.SMSWebhookURL, cfg.Notify.SMSToken),
	)
	worker := workers.NewNotificationWorker(jobStore, sender, workers.WorkerConfig{
		PollInterval: cfg.Worker.PollInterval,
		StaleAfter:   cfg.Worker.StaleAfter,
		BatchSize:    cfg.Worker.BatchSize,
	})
	worker.Start()
	printSuccess("Notification worker polling")

	printStep("6/7", "Setting up HTTP server...")
	bookingHandler := api.NewBookingHandler(bookingService, refundService, appointmentStore)

	signatureHeader := "Stripe-Signature"
	if cfg.PaymentProvider == "xendit" {
		signatureHeader = "X-Callback-Token"
	}
	webhookHandler := api.NewWebhookHandler(wrapped, eventStore, paymentEventService, signatureHeader)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", api.HealthCheckHandler).Methods("GET")
	apiRouter.HandleFunc("/appointments", bookingHandler.BookAppointment).Methods("POST")
	apiRouter.HandleFunc("/appointments/{id}/cancel", bookingHandler.CancelAppointment).Methods("POST")
	apiRouter.HandleFunc("/appointments/{id}/complete", bookingHandler.CompleteAppointment).Methods("POST")
	apiRouter.HandleFunc("/appointments/{id}/no-show", bookingHandler.MarkNoShow).Methods("POST")
	apiRouter.HandleFunc("/staff/{staff_id}/schedule", bookingHandler.StaffSchedule).Methods("GET")

	webhookRouter := router.PathPrefix("/api/v1/webhooks").Subrouter()
	webhookRouter.Use(middleware.RateLimitMiddleware(20, 40))
	webhookRouter.HandleFunc("/payments", webhookHandler.HandleWebhook).Methods("POST")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	printSuccess("HTTP server configured")

	printStep("7/7", fmt.Sprintf("Starting HTTP server on port %s...", cfg.Server.Port))
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			printError(fmt.Sprintf("Server failed to start: %v", err))
			os.Exit(1)
		}
	}()
	printSuccess(fmt.Sprintf("SlotWise ready on http://localhost:%s/api/v1/health (%s)", cfg.Server.Port, cfg.Environment))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println()
	printWarning("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		printError(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	// Worker after server: in-flight requests may still enqueue jobs.
	worker.Stop()

	printSuccess("SlotWise stopped gracefully")
}
