// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"suvidha-go/internal/config"
	"suvidha-go/internal/eligibility"
	"suvidha-go/internal/handler"
	"suvidha-go/internal/middleware"
	"suvidha-go/internal/model"
	"suvidha-go/internal/pipeline"
	"suvidha-go/internal/repository"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/database"
	"suvidha-go/pkg/embedding"
	"suvidha-go/pkg/kafka"
	"suvidha-go/pkg/llm"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/storage"
	"suvidha-go/pkg/token"
)

func configPath() string {
	if p := os.Getenv("SUVIDHA_CONFIG"); p != "" {
		return p
	}
	return "./configs/config.yaml"
}

func main() {
	// 1. 加载 .env 和配置
	_ = godotenv.Load()
	config.Init(configPath())
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、Kafka 和 MinIO
	var models []interface{}
	if cfg.Database.MySQL.AutoMigrate {
		models = model.AllModels()
	}
	database.InitMySQL(cfg.Database.MySQL.DSN, models...)
	defer database.Close()
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	if cfg.Kafka.Enabled() {
		kafka.InitProducer(cfg.Kafka)
		defer func() {
			if err := kafka.CloseProducer(); err != nil {
				log.Errorf("关闭 Kafka 生产者失败: %v", err)
			}
		}()
	} else {
		log.Info("未配置 Kafka，知识库重建任务将在进程内执行")
	}

	var objectStore storage.ObjectStore
	if cfg.MinIO.Enabled() {
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		objectStore = storage.NewMinioStore(storage.MinioClient, cfg.MinIO.BucketName)
	} else {
		log.Info("未配置 MinIO，知识库快照功能不可用")
	}

	// 4. 初始化 Repository
	knowledgeRepo := repository.NewKnowledgeRepository(database.DB)
	schemeRepo := repository.NewSchemeRepository(database.DB)
	catalogRepo := repository.NewCatalogRepository(database.DB)
	citizenRepo := repository.NewCitizenRepository(database.DB)
	billRepo := repository.NewBillRepository(database.DB)
	applicationRepo := repository.NewApplicationRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB, database.RDB, cfg.Chat.HistoryWindow, cfg.Chat.CacheTTL)
	apiKeyRepo := repository.NewAPIKeyRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		log.Fatal("LLM 初始化失败", err)
	}
	log.Infof("LLM 调用策略: %s, 支持函数调用: %t", provider.Name(), provider.SupportsTools())

	knowledgeService := service.NewKnowledgeService(knowledgeRepo, embeddingClient)
	schemeService := service.NewSchemeService(schemeRepo, citizenRepo, eligibility.Evaluator{StrictUnknownTypes: cfg.Eligibility.StrictUnknownTypes})
	billingService := service.NewBillingService(billRepo)
	functions := service.NewFunctionRegistry(service.FunctionDeps{
		Citizens:     citizenRepo,
		Applications: applicationRepo,
		Billing:      billingService,
		Schemes:      schemeService,
		Knowledge:    knowledgeService,
	})
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(conversationRepo, knowledgeService, provider, functions, service.ChatOptionsFromConfig(&cfg))
	apiKeyService := service.NewAPIKeyService(apiKeyRepo)
	var snapshotService service.SnapshotService
	if objectStore != nil {
		snapshotService = service.NewSnapshotService(knowledgeRepo, objectStore, cfg.MinIO.SnapshotPrefix, cfg.Embedding.Dimensions)
	}

	// 6. 初始化知识库生成管道，并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(embeddingClient, knowledgeRepo, schemeRepo, catalogRepo, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	var dispatcher pipeline.Dispatcher = pipeline.InlineDispatcher{Processor: processor}
	if cfg.Kafka.Enabled() {
		dispatcher = pipeline.KafkaDispatcher{}
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, database.RDB, processor)
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.CORS))

	chatHandler := handler.NewChatHandler(chatService, jwtManager)
	conversationHandler := handler.NewConversationHandler(conversationService)
	schemeHandler := handler.NewSchemeHandler(schemeService)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
	adminHandler := handler.NewAdminHandler(dispatcher, snapshotService, apiKeyService)

	// 8. 注册路由
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
	})
	apiV1 := r.Group("/api/v1")
	{
		// Chat 路由组，匿名可用
		chat := apiV1.Group("/chat")
		chat.Use(middleware.OptionalCitizen(jwtManager))
		{
			chat.POST("/conversation", conversationHandler.CreateConversation)
			chat.POST("/message", chatHandler.SendMessage)
			chat.GET("/history/:conversationId", conversationHandler.GetHistory)
			chat.GET("/ws", chatHandler.Socket)
		}

		schemes := apiV1.Group("/schemes")
		{
			schemes.GET("/:schemeId", middleware.OptionalCitizen(jwtManager), schemeHandler.GetScheme)
			schemes.POST("/:schemeId/check-eligibility", middleware.RequireCitizen(jwtManager), schemeHandler.CheckEligibility)
		}

		apiV1.GET("/knowledge/search", knowledgeHandler.Search)

		// 部门系统集成接口，使用 X-API-Key 认证
		integration := apiV1.Group("/integration")
		integration.Use(middleware.APIKeyAuth(apiKeyService))
		{
			integration.GET("/knowledge/search", knowledgeHandler.DepartmentSearch)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate(jwtManager), middleware.RequireAdmin())
		{
			admin.POST("/knowledge/rebuild", adminHandler.RebuildKnowledge)
			admin.GET("/knowledge/snapshots", adminHandler.ListSnapshots)
			admin.POST("/knowledge/snapshots", adminHandler.ExportSnapshot)
			admin.POST("/knowledge/snapshots/restore", adminHandler.RestoreSnapshot)
			admin.POST("/api-keys", adminHandler.CreateAPIKey)
			admin.DELETE("/api-keys/:id", adminHandler.RevokeAPIKey)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	stopConsumer()
	log.Info("服务已优雅关闭")
}
