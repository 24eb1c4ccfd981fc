package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"lingua-quiz-service/internal/app"
	"lingua-quiz-service/internal/domain"
	pgstore "lingua-quiz-service/internal/infra/postgres"
	pgmigrations "lingua-quiz-service/internal/infra/postgres/migrations"
	infraredis "lingua-quiz-service/internal/infra/redis"
)

func TestQuizCompletionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := zap.NewNop()
	bankRepo := infraredis.NewBankRepository(redisClient, pgstore.NewBankLoader(pool), 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	history := pgstore.NewHistoryRepository(pool)
	profiles := pgstore.NewProfileRepository(pool)
	ranks := infraredis.NewLeaderboardStore(redisClient)
	reporter := app.NewReporter(history, profiles, ranks, 10, log)
	service := app.NewQuizService(sessionStore, bankRepo, reporter, log)

	session, _, err := service.StartQuiz(ctx, "u1", "spanish", "", 0)
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}

	// Answer every question correctly, in whatever order the shuffle chose.
	for {
		question, err := session.Current()
		if err != nil {
			break
		}
		if _, err := service.Submit(ctx, session.ID(), correctSubmission(question)); err != nil {
			t.Fatalf("submit %s: %v", question.ID, err)
		}
		_, result, err := service.Advance(ctx, session.ID())
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if result != nil {
			if result.Score != 3 || result.Total != 3 || result.Accuracy != 100 {
				t.Fatalf("unexpected result %+v", result)
			}
			break
		}
	}

	// Reporting is asynchronous; poll the stores until it lands.
	waitFor(t, 10*time.Second, func() error {
		records, err := history.List(ctx, "u1", 10)
		if err != nil {
			return err
		}
		if len(records) != 1 {
			return fmt.Errorf("expected 1 history record, got %d", len(records))
		}
		if records[0].Score != 3 || records[0].Total != 3 {
			return fmt.Errorf("unexpected record %+v", records[0])
		}
		return nil
	})

	waitFor(t, 10*time.Second, func() error {
		profile, err := profiles.Get(ctx, "u1")
		if err != nil {
			return err
		}
		if profile.TotalXP != 30 || profile.Streak != 1 {
			return fmt.Errorf("unexpected profile %+v", profile)
		}
		return nil
	})

	waitFor(t, 10*time.Second, func() error {
		entries, err := ranks.List(ctx, 10)
		if err != nil {
			return err
		}
		if len(entries) != 1 || entries[0].UserID != "u1" || entries[0].TotalXP != 30 {
			return fmt.Errorf("unexpected leaderboard %+v", entries)
		}
		return nil
	})
}

func correctSubmission(q domain.Question) domain.AnswerSubmission {
	sub := domain.AnswerSubmission{QuestionID: q.ID}
	switch q.Type {
	case domain.MultipleChoice:
		idx := q.CorrectIndex
		sub.OptionIndex = &idx
	case domain.TrueFalse:
		slot := domain.FalseSlot
		if q.CorrectBool {
			slot = domain.TrueSlot
		}
		sub.OptionIndex = &slot
	default:
		sub.Text = q.CorrectText
	}
	return sub
}

func waitFor(t *testing.T, timeout time.Duration, check func() error) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if lastErr = check(); lastErr == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("condition not met: %v", lastErr)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBank(t *testing.T, ctx context.Context, dsn string, bank domain.Bank) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(bank)
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_banks (language, data) VALUES (?, ?::jsonb) ON CONFLICT (language) DO UPDATE SET data=EXCLUDED.data`, bank.Language, string(data)); err != nil {
		t.Fatalf("insert bank: %v", err)
	}
}

func sampleBank() domain.Bank {
	return domain.Bank{
		Language: "spanish",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.MultipleChoice, Prompt: "How do you say cat?", Options: []string{"perro", "gato"}, CorrectIndex: 1},
			{ID: "q2", Type: domain.TrueFalse, Prompt: "Gato means cat.", CorrectBool: true},
			{ID: "q3", Type: domain.ShortAnswer, Prompt: "Translate gato.", CorrectText: "cat"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
