package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/bgjob/internal/config"
	"github.com/shaiso/bgjob/internal/mq"
	"github.com/shaiso/bgjob/internal/repo"
)

var (
	errNoDatabase = errors.New("database_url is not configured (set DB_URL)")
	errNoRabbitMQ = errors.New("rabbitmq_url is not configured (set RABBITMQ_URL)")
)

// infra — внешние зависимости процесса. Любая может отсутствовать.
type infra struct {
	pool      *pgxpool.Pool
	jobs      *repo.JobRepo
	attempts  *repo.AttemptRepo
	mqConn    *mq.Connection
	publisher *mq.Publisher
}

// connectDB подключает PostgreSQL, если он настроен.
// Ошибку подключения не считает фатальной: история job необязательна.
func (in *infra) connectDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if cfg.DatabaseURL == "" {
		return
	}

	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("database not available, job history disabled", "error", err)
		return
	}

	in.pool = pool
	in.jobs = repo.NewJobRepo(pool)
	in.attempts = repo.NewAttemptRepo(pool)
}

// connectMQ подключает RabbitMQ, если он настроен.
func (in *infra) connectMQ(ctx context.Context, cfg *config.Config, name string, logger *slog.Logger) {
	if cfg.RabbitMQURL == "" {
		return
	}

	conn, err := mq.NewConnection(cfg.RabbitMQURL, name, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, job events disabled", "error", err)
		return
	}

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}

	in.mqConn = conn
	in.publisher = mq.NewPublisher(conn, logger)
}

// Close закрывает открытые соединения.
func (in *infra) Close() {
	if in.mqConn != nil {
		in.mqConn.Close()
	}
	if in.pool != nil {
		in.pool.Close()
	}
}

// requireDB подключает PostgreSQL для команд, которым он обязателен.
func requireDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errNoDatabase
	}
	return repo.NewPool(ctx, cfg.DatabaseURL)
}
