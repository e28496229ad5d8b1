package main

import (
	"trimline/internal/reservations/handler"
	"trimline/internal/reservations/repository"
	"trimline/internal/reservations/service"
	"trimline/internal/reservations/validator"
	"trimline/pkg/app"
	"trimline/pkg/client"
	"trimline/pkg/config"
	"trimline/pkg/kafka"
	kafka_config "trimline/pkg/kafka/config"
	"trimline/pkg/lock"
	"trimline/pkg/notify"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")
	engine, gateway := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(func() {
		if err := gateway.Close(); err != nil {
			cfg.Log.Error("Failed to close notification gateway", "error", err)
		}
	})
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewReservationHandler(engine, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.ReservationEngine, notify.Gateway) {
	resValidator := validator.NewReservationValidator(cfg.Log)
	repo := repository.NewMongoReservationRepository(cfg)
	idemRepo := repository.NewMongoIdempotencyRepository(cfg)

	var locks lock.Manager
	switch cfg.LockBackend {
	case config.LockBackendMongo:
		locks = repository.NewMongoLockManager(cfg)
	default:
		locks = lock.NewMemoryManager()
	}

	var availability service.AvailabilitySource
	if cfg.AvailabilityBaseURL != "" {
		availability = client.NewAvailabilityClient(cfg.AvailabilityBaseURL)
	}

	var gateway notify.Gateway = notify.NoopGateway{}
	if cfg.NotificationsEnabled {
		producer, err := kafka.NewProducer(
			kafka_config.Load(),
			cfg.NotificationsTopic,
			cfg.NotificationsTopic+".dlq",
			cfg.Log,
		)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
		}
		gateway = notify.NewKafkaGateway(producer, cfg.Log)
	}

	engine := service.NewReservationEngine(
		repo,
		idemRepo,
		locks,
		availability,
		resValidator,
		gateway,
		cfg,
	)

	cfg.Log.Info("Reservation engine initialized",
		"database", cfg.MongoDatabaseName,
		"lock_backend", cfg.LockBackend,
		"notifications_enabled", cfg.NotificationsEnabled,
	)
	return engine, gateway
}
