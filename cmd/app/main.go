package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	v1 "github.com/Biniyam-Belay/rulDashboard/internal/controller/http/v1"
	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
	"github.com/Biniyam-Belay/rulDashboard/internal/domain/usecase"
	psqlRepo "github.com/Biniyam-Belay/rulDashboard/internal/repository/psql"
	"github.com/Biniyam-Belay/rulDashboard/internal/repository/rabbitmq"
	redisRepo "github.com/Biniyam-Belay/rulDashboard/internal/repository/redis"
	s3Repo "github.com/Biniyam-Belay/rulDashboard/internal/repository/s3"
	"github.com/Biniyam-Belay/rulDashboard/internal/repository/tfserving"
	"github.com/Biniyam-Belay/rulDashboard/pkg/client/psql"
	redisGo "github.com/Biniyam-Belay/rulDashboard/pkg/client/redis"
	s3ClientGo "github.com/Biniyam-Belay/rulDashboard/pkg/client/s3"
	"github.com/Biniyam-Belay/rulDashboard/pkg/middleware"
)

type Config struct {
	RedisAddr string
	RedisDB   int

	PSQLHost     string
	PSQLPort     int
	PSQLUser     string
	PSQLPassword string
	PSQLDBName   string
	PSQLSSLMode  string

	S3Host           string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	FeatureScalerKey string
	RulScalerKey     string

	RabbitMQURL string

	ModelBaseURL   string
	ModelName      string
	ModelTimeout   time.Duration
	SerializeModel bool

	MaxBatchSize int
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	r := gin.Default()

	redisClient, err := redisGo.NewRedisClient(ctx, redisGo.Config{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	db, err := psql.NewPostgresDB(psql.Config{
		Host:     cfg.PSQLHost,
		User:     cfg.PSQLUser,
		Password: cfg.PSQLPassword,
		DBName:   cfg.PSQLDBName,
		Port:     cfg.PSQLPort,
		SslMode:  cfg.PSQLSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := db.AutoMigrate(&entity.PredictionRecord{}); err != nil {
		log.Fatalf("failed to migrate prediction records: %v", err)
	}

	s3Client, err := s3ClientGo.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("failed to create s3 client: %v", err)
	}
	artifactRepo := s3Repo.NewArtifactRepo(s3Client)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	predictionPublisher, err := rabbitmq.NewRabbitPublisher(conn, "predictions.exchange", "rul.predicted")
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}

	uc := usecase.NewPredictUseCase(
		redisRepo.NewRedisRepo(redisClient),
		psqlRepo.NewGormPredictionRepo(db),
		predictionPublisher,
	)

	// Artifacts load in the background; until Install completes every
	// prediction endpoint answers 503 NotReady.
	go func() {
		fs, err := artifactRepo.LoadScaler(ctx, cfg.FeatureScalerKey)
		if err != nil {
			log.Fatalf("failed to load feature scaler: %v", err)
		}
		rs, err := artifactRepo.LoadScaler(ctx, cfg.RulScalerKey)
		if err != nil {
			log.Fatalf("failed to load rul scaler: %v", err)
		}

		var model usecase.Model = tfserving.NewModelClient(cfg.ModelBaseURL, cfg.ModelName, cfg.ModelTimeout)
		if cfg.SerializeModel {
			model = usecase.SerializeModel(model)
		}

		if err := uc.Install(model, fs, rs); err != nil {
			log.Fatalf("failed to install model artifacts: %v", err)
		}
		log.Println("Model and scalers loaded successfully.")
	}()

	handler := v1.NewPredictHandler(uc, cfg.MaxBatchSize)

	r.GET("/health", handler.Health)
	r.GET("/ready", handler.Readiness)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RedisClient: redisClient,
		Limit:       10,
		Window:      time.Second,
		KeyPrefix:   "rl:",
	})

	v1Group := r.Group("/api/v1")
	v1Group.Use(middleware.APIKeyAuthMiddleware(), rl)
	{
		v1Group.POST("/predict", handler.PredictSingle)
		v1Group.POST("/predict/batch", handler.PredictBatch)
		v1Group.GET("/predictions/:bearing_id", handler.GetRecent)
		v1Group.GET("/stats", handler.GetStats)
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func loadConfig() Config {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	mustGetEnv := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Fatalf("Environment variable %s is not set", key)
		}
		return val
	}
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	// REDIS
	redisHost := mustGetEnv("REDIS_HOST")
	redisPort := mustGetEnv("REDIS_PORT")
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		log.Fatalf("Invalid REDIS_DB value: %v", err)
	}

	// PSQL
	psqlPort, err := strconv.Atoi(mustGetEnv("PSQL_PORT"))
	if err != nil {
		log.Fatalf("Invalid PSQL_PORT value: %v", err)
	}

	// RABBITMQ
	rmqUser := mustGetEnv("RABBITMQ_USER")
	rmqPassword := mustGetEnv("RABBITMQ_PASSWORD")
	rmqHost := mustGetEnv("RABBITMQ_HOST")
	rmqPort := mustGetEnv("RABBITMQ_PORT")
	rabbitMQURL := "amqp://" + rmqUser + ":" + rmqPassword + "@" + rmqHost + ":" + rmqPort + "/"

	// MODEL SERVER
	modelTimeout, err := time.ParseDuration(getEnv("MODEL_TIMEOUT", "30s"))
	if err != nil {
		log.Fatalf("Invalid MODEL_TIMEOUT value: %v", err)
	}

	maxBatch, err := strconv.Atoi(getEnv("MAX_BATCH_SIZE", "256"))
	if err != nil {
		log.Fatalf("Invalid MAX_BATCH_SIZE value: %v", err)
	}

	return Config{
		RedisAddr: redisHost + ":" + redisPort,
		RedisDB:   redisDB,

		PSQLHost:     mustGetEnv("PSQL_HOST"),
		PSQLPort:     psqlPort,
		PSQLUser:     mustGetEnv("PSQL_USER"),
		PSQLPassword: mustGetEnv("PSQL_PASSWORD"),
		PSQLDBName:   mustGetEnv("PSQL_DB"),
		PSQLSSLMode:  mustGetEnv("PSQL_SSLMODE"),

		S3Host:           mustGetEnv("S3_HOST") + ":" + mustGetEnv("S3_PORT"),
		S3Bucket:         mustGetEnv("S3_BUCKET"),
		S3AccessKey:      mustGetEnv("S3_ACCESS_KEY"),
		S3SecretKey:      mustGetEnv("S3_SECRET_KEY"),
		FeatureScalerKey: getEnv("FEATURE_SCALER_KEY", "artifacts/feature_scaler.json"),
		RulScalerKey:     getEnv("RUL_SCALER_KEY", "artifacts/rul_scaler.json"),

		RabbitMQURL: rabbitMQURL,

		ModelBaseURL:   mustGetEnv("MODEL_BASE_URL"),
		ModelName:      getEnv("MODEL_NAME", "cnnlstm_rul"),
		ModelTimeout:   modelTimeout,
		SerializeModel: getEnv("MODEL_SERIALIZE", "false") == "true",

		MaxBatchSize: maxBatch,
	}
}
