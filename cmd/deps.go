package cmd

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "pdfqa/handler/http"
	"pdfqa/src/answer"
	"pdfqa/src/core/pdfqa"
	"pdfqa/src/embedding"
	"pdfqa/src/fsutil"
	jobctrl "pdfqa/src/infrastructure/job"
	"pdfqa/src/log"
	"pdfqa/src/pdftext"
	"pdfqa/src/storage/memory"
	"pdfqa/src/storage/minioctrl"
	"pdfqa/src/storage/postgres/chunkctrl"
	"pdfqa/src/storage/postgres/documentctrl"
	"pdfqa/src/storage/weaviate"
)

const (
	backendPostgres = "postgres"
	backendWeaviate = "weaviate"
	backendMemory   = "memory"
)

// app holds the process-wide clients shared by every command.
type app struct {
	db       *gorm.DB
	store    pdfqa.ChunkStore
	docs     pdfqa.DocumentRepository
	embedder *embedding.OllamaEmbedder
	files    fsutil.FileStore
	ingestor *pdfqa.Ingestor
	answerer *pdfqa.Answerer

	checks    map[string]httpHdlr.HealthCheck
	migrators []func(ctx context.Context) error
	closers   []func() error
}

type appOptions struct {
	// withAnswerer builds the LLM client; ingestion-only commands skip it.
	withAnswerer bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	a := &app{
		checks: make(map[string]httpHdlr.HealthCheck),
		files:  fsutil.NewLocalFileStore(viper.GetString("rag.temp_dir")),
	}

	backend := viper.GetString("store.backend")
	log.Info("building application", "store", backend)

	switch backend {
	case backendMemory:
		docs, err := memory.NewDocumentRepository()
		if err != nil {
			return nil, err
		}
		a.docs = docs
		a.store = memory.NewChunkStore()
	case backendPostgres, backendWeaviate:
		if err := a.openPostgres(); err != nil {
			return nil, err
		}
		docs, err := documentctrl.NewDocumentService(a.db)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize document service: %w", err)
		}
		a.docs = docs
		a.migrators = append(a.migrators, docs.Migrate)

		if backend == backendPostgres {
			chunks := chunkctrl.NewChunkService(a.db)
			a.store = chunks
			a.migrators = append(a.migrators, chunks.Migrate)
		} else {
			store, err := a.openWeaviate()
			if err != nil {
				return nil, err
			}
			a.store = store
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	embedder, err := embedding.NewOllamaEmbedder(
		viper.GetString("ollama.url"),
		viper.GetString("embedding.model"),
		viper.GetInt("embedding.batch_size"),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.embedder = embedder
	a.checks["ollama"] = embedder.Heartbeat

	a.ingestor, err = pdfqa.NewIngestor(a.docs, a.store, a.embedder, pdftext.Extract, a.files, pdfqa.IngestConfig{
		ChunkSize:  viper.GetInt("rag.chunk_size"),
		StaleAfter: viper.GetDuration("rag.stale_after"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ingestor: %w", err)
	}

	if opts.withAnswerer {
		if err := a.buildAnswerer(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *app) openPostgres() error {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}

	a.db = db
	a.closers = append(a.closers, sqlDB.Close)
	a.checks["postgres"] = sqlDB.PingContext
	return nil
}

func (a *app) openWeaviate() (*weaviate.ChunkStore, error) {
	u, err := url.Parse(viper.GetString("weaviate.url"))
	if err != nil {
		return nil, fmt.Errorf("invalid weaviate url: %w", err)
	}
	client, err := weaviate.NewClient(u.Scheme, u.Host)
	if err != nil {
		return nil, err
	}

	sdk := weaviate.NewSDK(client)
	store := weaviate.NewChunkStore(sdk, viper.GetString("weaviate.class"))
	a.migrators = append(a.migrators, store.EnsureSchema)
	a.checks["weaviate"] = sdk.Ready
	return store, nil
}

func (a *app) buildAnswerer() error {
	gen, err := answer.NewGenerator(answer.ProviderConfig{
		Provider: viper.GetString("llm.provider"),
		BaseURL:  viper.GetString("llm.base_url"),
		Token:    viper.GetString("llm.token"),
		Model:    viper.GetString("llm.model"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize llm: %w", err)
	}

	composer, err := answer.NewComposer(gen,
		viper.GetString("llm.model"),
		viper.GetFloat64("llm.temperature"),
		viper.GetInt("llm.max_tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize composer: %w", err)
	}

	a.answerer, err = pdfqa.NewAnswerer(a.docs, a.store, a.embedder, composer, viper.GetInt("rag.top_k"))
	if err != nil {
		return fmt.Errorf("failed to initialize answerer: %w", err)
	}
	return nil
}

// migrate creates tables, extensions and vector classes. Every step is idempotent.
func (a *app) migrate(ctx context.Context) error {
	for _, m := range a.migrators {
		if err := m(ctx); err != nil {
			return err
		}
	}
	return nil
}

// jobRepository returns a durable repository when postgres is available.
func (a *app) jobRepository(ctx context.Context) (jobctrl.JobRepository, error) {
	if a.db == nil {
		return jobctrl.NewMemoryJobRepository(), nil
	}
	repo := jobctrl.NewPostgresJobRepository(a.db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// pdfArchive returns the hand-off storage between upload and worker.
func (a *app) pdfArchive(ctx context.Context) (jobctrl.Archive, error) {
	if !viper.GetBool("minio.enabled") {
		dir := viper.GetString("rag.temp_dir")
		if dir == "" {
			dir = filepath.Join(".", "data")
		}
		return fsutil.NewLocalArchive(filepath.Join(dir, "archive"))
	}

	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio service: %w", err)
	}

	archive := minioctrl.NewPDFArchive(minioService, viper.GetString("minio.pdf_bucket"))
	if err := archive.Init(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error(err, "failed to close resource")
		}
	}
}

func shutdownTimeout() time.Duration {
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}
	return timeout
}
