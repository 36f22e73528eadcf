// Command kbgen 从计划、政策、资费和内置问答重建知识库。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"suvidha-go/internal/config"
	"suvidha-go/internal/model"
	"suvidha-go/internal/pipeline"
	"suvidha-go/internal/repository"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/database"
	"suvidha-go/pkg/embedding"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/storage"
)

func main() {
	configFile := flag.String("config", "./configs/config.yaml", "配置文件路径")
	category := flag.String("category", "", "只重建指定分类 (scheme|policy|tariff|faq|service)")
	snapshot := flag.Bool("snapshot", false, "重建完成后导出快照到 MinIO")
	flag.Parse()

	_ = godotenv.Load()
	config.Init(*configFile)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	var models []interface{}
	if cfg.Database.MySQL.AutoMigrate {
		models = model.AllModels()
	}
	database.InitMySQL(cfg.Database.MySQL.DSN, models...)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	knowledgeRepo := repository.NewKnowledgeRepository(database.DB)
	processor := pipeline.NewProcessor(
		embedding.NewClient(cfg.Embedding),
		knowledgeRepo,
		repository.NewSchemeRepository(database.DB),
		repository.NewCatalogRepository(database.DB),
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
	)

	report, err := processor.Rebuild(ctx, model.KnowledgeCategory(*category))
	if err != nil {
		log.Fatal("[kbgen] 知识库重建失败", err)
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if total, err := knowledgeRepo.CountActive(ctx); err == nil {
		log.Infof("[kbgen] 当前启用条目数: %d", total)
	}

	if *snapshot {
		if !cfg.MinIO.Enabled() {
			log.Fatalf("[kbgen] 未配置 MinIO，无法导出快照")
		}
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			log.Fatal("[kbgen] MinIO 初始化失败", err)
		}
		store := storage.NewMinioStore(storage.MinioClient, cfg.MinIO.BucketName)
		result, err := service.NewSnapshotService(knowledgeRepo, store, cfg.MinIO.SnapshotPrefix, cfg.Embedding.Dimensions).Export(ctx)
		if err != nil {
			log.Fatal("[kbgen] 导出快照失败", err)
		}
		log.Infof("[kbgen] 快照已导出: %s (%d 条)", result.Object, result.Entries)
	}

	if report.Failed > 0 {
		log.Warnf("[kbgen] %d 个条目向量化失败，可重新运行以重试", report.Failed)
		log.Sync()
		database.Close()
		os.Exit(1)
	}
}
