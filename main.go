package main

import (
	"CloudHunter/config"
	"CloudHunter/internal/delivery"
	"CloudHunter/internal/handler"
	"CloudHunter/internal/identity"
	"CloudHunter/internal/repo"
	"CloudHunter/internal/service"
	"CloudHunter/internal/shortener"
	"CloudHunter/internal/storage"
	"CloudHunter/internal/store"
	"CloudHunter/internal/task"
	"CloudHunter/router"
	"CloudHunter/utils"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
)

func newDelivery(cfg config.Config) delivery.Client {
	switch cfg.DeliveryBackend {
	case config.BackendMinio:
		storage.InitMinio()
		return delivery.NewObjectStore(config.BackendMinio, storage.Default, cfg.BucketName, cfg.MinioURLExpiry)
	case config.BackendS3:
		storage.InitS3()
		return delivery.NewObjectStore(config.BackendS3, storage.Default, cfg.S3Bucket, cfg.S3URLExpiry)
	default:
		return delivery.NewTelegram(cfg.TelegramAPIBase, cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramTimeout)
	}
}

// main initializes services and starts the HTTP server.
func main() {
	config.InitConfig()
	cfg := config.AppConfig
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	repo.InitDB()

	var (
		kv     identity.KV
		locker service.Locker
		cache  utils.Cache
	)
	if cfg.RedisEnabled {
		repo.InitRedis()
		kv = repo.NewRedisKV(repo.Redis)
		locker = repo.NewRedisLocker(repo.Redis, cfg.ShortenLockTTL)
		cache = utils.NewRedisCache(repo.Redis)
	} else {
		log.Println("redis disabled, using in-process tokens and locks")
		kv = repo.NewMemoryKV()
		locker = repo.NewLocalLocker()
	}

	var mailer identity.Mailer
	if cfg.SMTPHost != "" {
		mailer = utils.NewSMTPMailer(cfg)
	}
	ident := identity.NewLocal(repo.Db, kv, mailer, identity.LocalOptions{
		Secret:      cfg.JWTSecret,
		TokenTTL:    cfg.JWTTTL,
		ResetTTL:    cfg.ResetTokenTTL,
		ResetURL:    cfg.AppBaseURL + "/reset/confirm",
		SignInRate:  cfg.SignInRate,
		SignInBurst: cfg.SignInBurst,
	})

	var incidents service.IncidentReporter
	if cfg.IncidentsEnabled {
		incidents = task.NewReporter(cfg.RabbitMQURL, cfg.IncidentPublishTimeout)
	}

	app := &service.App{
		Identity:      ident,
		Store:         store.NewGormStore(repo.Db, cache, cfg.ListCacheTTL, cfg.FileListMaxSize),
		Delivery:      newDelivery(cfg),
		Incidents:     incidents,
		Locker:        locker,
		MaxUploadSize: cfg.MaxUploadSize,
	}
	if cfg.BitlyAccessToken != "" {
		app.Shortener = shortener.NewBitly(cfg.BitlyAPIBase, cfg.BitlyAccessToken, cfg.BitlyTimeout)
	} else {
		log.Println("bitly token missing, copy link falls back to the original url")
	}

	gate := service.NewSessionGate(ident)
	defer gate.Close()

	r := router.InitRouter(handler.New(app, gate), router.Options{
		SessionSecret: cfg.SessionSecret,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookie:  strings.HasPrefix(cfg.AppBaseURL, "https://"),
	})
	log.Printf("delivery backend %s, listening on %s", app.Delivery.Name(), cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("http server stopped: %v", err)
	}
}
