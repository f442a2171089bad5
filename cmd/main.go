package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/config"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/db"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/handlers"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/notify"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/services"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	cfg := config.Load()
	clock := clockwork.NewRealClock()
	ctx := context.Background()

	// Transaction store: MongoDB when configured, in-memory otherwise.
	var txStore store.TransactionStore
	if cfg.MongoURI != "" {
		client, err := db.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}()

		mongoStore := store.NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to ensure indexes: %v", err)
		}
		txStore = mongoStore
	} else {
		log.Println("MONGOURI not set, using in-memory transaction store")
		txStore = store.NewMemoryStore()
	}

	// Gateway: live Daraja client, or simulation mode without credentials.
	var gateway services.Gateway
	if cfg.SimulationMode() {
		log.Println("Daraja credentials not set, running in simulation mode")
	} else {
		gateway = services.NewDarajaClient(cfg.Daraja, clock)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}

	metrics := services.NewMetrics()
	paymentService := services.NewPaymentService(txStore, gateway, notifier, clock, metrics, cfg.PendingTTL, cfg.SimulatedDelay)
	defer paymentService.Shutdown()

	if err := paymentService.ResumeWatchdogs(ctx); err != nil {
		log.Printf("Failed to resume expiry watchdogs: %v", err)
	}

	poller := services.NewStatusPoller(txStore, clock, cfg.PollInterval, cfg.PollMaxWait)
	paymentHandler := handlers.NewPaymentHandler(paymentService, poller)
	metricsHandler := handlers.NewMetricsHandler(metrics)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/payment", paymentHandler.InitiatePayment).Methods("POST")
	router.HandleFunc("/api/payment/callback", paymentHandler.Callback).Methods("POST")
	router.HandleFunc("/api/payment/status/{checkoutRequestID}", paymentHandler.Status).Methods("GET")
	router.HandleFunc("/api/payment/poll/{checkoutRequestID}", paymentHandler.Poll).Methods("GET")
	router.HandleFunc("/api/payments", paymentHandler.ListPayments).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler.Snapshot).Methods("GET")

	server := &http.Server{
		Addr:        "0.0.0.0:" + cfg.Port,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// The poll endpoint holds requests open up to the poller budget.
		WriteTimeout: cfg.PollMaxWait + 10*time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
