package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/config"
	"github.com/kalebWondimu/library-backend/internal/handlers"
	"github.com/kalebWondimu/library-backend/internal/repositories"
	"github.com/kalebWondimu/library-backend/internal/repositories/memory"
	"github.com/kalebWondimu/library-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	var (
		tx         repositories.TxRunner
		bookRepo   repositories.BookRepository
		memberRepo repositories.MemberRepository
		genreRepo  repositories.GenreRepository
		recordRepo repositories.BorrowRecordRepository
		ping       func(ctx context.Context) error
	)

	if cfg.UseMemoryStore {
		logger.Warn("running on the in-memory store, data will not survive a restart")
		store := memory.NewStore()
		tx = store.TxRunner()
		bookRepo = store.Books()
		memberRepo = store.Members()
		genreRepo = store.Genres()
		recordRepo = store.BorrowRecords()
	} else {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			logger.Fatal("failed to connect database", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("failed to get generic DB", zap.Error(err))
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
		ping = sqlDB.PingContext

		tx = repositories.NewGormTxRunner(db)
		bookRepo = repositories.NewBookRepository(db)
		memberRepo = repositories.NewMemberRepository(db)
		genreRepo = repositories.NewGenreRepository(db)
		recordRepo = repositories.NewBorrowRecordRepository(db)
	}

	policy := services.NewPolicyGuard(recordRepo, cfg.MaxOpenLoans)
	borrowing := services.NewBorrowingService(tx, bookRepo, memberRepo, recordRepo, policy, logger, cfg.LoanPeriodDays)
	catalog := services.NewCatalogService(tx, bookRepo, genreRepo, recordRepo, logger)
	members := services.NewMemberService(tx, memberRepo, recordRepo, policy, logger)
	queries := services.NewQueryService(memberRepo, recordRepo)

	router := gin.Default()

	handlers.RegisterHealth(router, ping)
	handlers.RegisterRoutes(router, catalog, members, borrowing, queries, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	logger.Info("starting server", zap.String("addr", cfg.ServerAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
