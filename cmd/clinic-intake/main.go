package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"clinic-intake/internal/config"
	"clinic-intake/internal/database"
	"clinic-intake/internal/ingest"
	"clinic-intake/internal/logger"
	"clinic-intake/internal/repository"
	"clinic-intake/internal/service"
	"clinic-intake/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// clinic-intake 排程导入工具：解析一批 CSV/XLSX 排程文件，
// 合并去重并校验完整性，可选地提交入库和触发外呼。
// 核心导入逻辑在 internal/ingest，这个命令只是它的一个调用方
func main() {
	var (
		clinicID       = flag.String("clinic", "", "clinic identifier (required unless -template)")
		commit         = flag.Bool("commit", false, "persist complete records after merge")
		confirmPartial = flag.Bool("confirm-partial", false, "explicitly confirm saving only complete records when some are incomplete")
		triggerCalls   = flag.Bool("call", false, "trigger outbound calls for pending appointments after commit")
		templateOut    = flag.String("template", "", "write a blank import template xlsx to this path and exit")
	)
	flag.Parse()

	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "clinic-intake")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *templateOut != "" {
		data, err := ingest.GenerateImportTemplate()
		if err != nil {
			log.Fatal("failed to generate import template", zap.Error(err))
		}
		if err := os.WriteFile(*templateOut, data, 0o644); err != nil {
			log.Fatal("failed to write import template", zap.Error(err))
		}
		log.Info("import template written", zap.String("path", *templateOut))
		return
	}

	if *clinicID == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: clinic-intake -clinic <id> [-commit] [-confirm-partial] [-call] <file.csv|file.xlsx> ...")
		os.Exit(2)
	}

	ctx := context.Background()

	// 仓储：DB 不可用时退回内存实现，保证本地运行不依赖基础设施
	var repo repository.AppointmentsRepository = repository.NewMemoryAppointmentsRepository()
	if cfg.DBEnabled {
		if db, err := database.NewPostgresDB(&cfg.Database); err == nil {
			repo = repository.NewPostgresAppointmentsRepository(db)
			defer database.Close(db)
			log.Info("DB enabled for clinic-intake")
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory repository", zap.Error(err))
		}
	}

	// 快照存储：Redis 不可达时跳过快照
	var snapshots *store.SnapshotStore
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err == nil {
		snapshots = store.NewSnapshotStore(store.NewRedisKV(redisClient), time.Duration(cfg.SnapshotTTLHours)*time.Hour)
	} else {
		log.Warn("redis unavailable, session snapshots disabled", zap.Error(err))
	}
	cancel()

	var calls service.CallTrigger
	if cfg.Call.WebhookURL != "" {
		calls = service.NewWebhookCallClient(cfg.Call.WebhookURL, time.Duration(cfg.Call.TimeoutSeconds)*time.Second, log)
	}

	svc := service.NewIntakeService(repo, snapshots, calls, log)

	inputs := make([]ingest.FileInput, 0, flag.NArg())
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal("failed to read input file", zap.String("path", path), zap.Error(err))
		}
		inputs = append(inputs, ingest.FileInput{FileName: path, Data: data})
	}

	state, fileErrs, err := svc.UploadFiles(ctx, *clinicID, inputs...)
	if err != nil {
		log.Fatal("upload failed", zap.Error(err))
	}
	for _, fe := range fileErrs {
		log.Warn("file skipped", zap.String("file_name", fe.FileName), zap.Error(fe.Err))
	}

	out, _ := json.MarshalIndent(state, "", "  ")
	fmt.Println(string(out))

	if !*commit {
		return
	}

	res, err := svc.Commit(ctx, *clinicID, *confirmPartial)
	if err != nil {
		var partial *ingest.PartialCommitError
		if errors.As(err, &partial) {
			log.Error("commit blocked, rerun with -confirm-partial to save only complete records", zap.Error(err))
			os.Exit(1)
		}
		log.Fatal("commit failed", zap.Error(err))
	}
	log.Info("commit finished", zap.Int("saved", res.Saved), zap.Int("skipped", res.Skipped))

	if *triggerCalls {
		callRes, err := svc.TriggerPendingCalls(ctx, *clinicID)
		if err != nil {
			log.Fatal("call triggering failed", zap.Error(err))
		}
		log.Info("calls triggered", zap.Int("triggered", callRes.Triggered), zap.Int("failed", callRes.Failed))
	}
}
