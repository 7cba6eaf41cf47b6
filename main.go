package main

import (
	"context"
	"log"
	"os"

	"casedesk/internal/api"
	"casedesk/internal/artifacts"
	"casedesk/internal/auth"
	"casedesk/internal/config"
	"casedesk/internal/dispatch"
	"casedesk/internal/queue"
	"casedesk/internal/redis"
	"casedesk/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CASEDESK_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("CASEDESK_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	defer rdb.Close()

	secret, err := config.SessionSecret()
	if err != nil {
		log.Fatalf("session secret: %v", err)
	}

	// The identity strategy is chosen exactly once here. When federated
	// login is configured the passcode endpoints are never mounted, so
	// a leftover passcode cookie cannot downgrade the deployment.
	var resolver auth.Resolver
	switch cfg.Auth.Mode() {
	case config.ModeFederated:
		clientSecret, err := config.OAuthClientSecret()
		if err != nil {
			log.Fatalf("oauth client secret: %v", err)
		}
		source := auth.NewOAuthSessionSource(cfg.Auth.OAuthClientID, clientSecret, cfg.Auth.OAuthRedirectURL, secret)
		resolver = auth.NewFederatedResolver(source, cfg.BasicConfig.TeamID, cfg.Auth.AllowedDomain, cfg.Auth.DefaultMemberName)
		log.Printf("auth mode: federated (domain %s)", cfg.Auth.AllowedDomain)
	default:
		passcode, err := config.TeamPasscode()
		if err != nil {
			log.Fatalf("team passcode: %v", err)
		}
		codec := auth.NewCodec(secret, auth.DefaultSessionTTL)
		resolver = auth.NewPasscodeResolver(codec, cfg.BasicConfig.TeamID, passcode)
		log.Printf("auth mode: passcode")
	}
	authSvc := auth.NewService(resolver)

	ctx := context.Background()
	publisher, err := queue.NewSQSPublisher(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("create queue publisher: %v", err)
	}
	signer, err := artifacts.NewS3Signer(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("create url signer: %v", err)
	}

	jobs := storage.NewJobStore(db)
	files := storage.NewFileStore(db)
	cache := storage.NewJobCache(rdb)
	dispatcher := dispatch.NewDispatcher(jobs, files, publisher)
	gateway := artifacts.NewGateway(jobs, signer)

	handlers := api.NewHandler(authSvc, dispatcher, jobs, files, gateway, signer, cache, cfg.AWS.S3Bucket)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
