package app

import (
	"time"

	"github.com/yungbote/dreamworld-backend/internal/data/db"
	"github.com/yungbote/dreamworld-backend/internal/jobs/sweeper"
	"github.com/yungbote/dreamworld-backend/internal/jobs/worker"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
	"github.com/yungbote/dreamworld-backend/internal/platform/envutil"
	"github.com/yungbote/dreamworld-backend/internal/platform/openai"
	"github.com/yungbote/dreamworld-backend/internal/realtime/bus"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	DB         db.Config
	OpenAI     openai.Config
	Extraction extraction.LLMConfig
	Worker     worker.Config
	Sweeper    sweeper.Config
	Redis      bus.RedisConfig

	VocabularyPath      string
	QueueSampleInterval time.Duration
	RunWorkers          bool
	ShutdownGracePeriod time.Duration
}

// LoadConfig reads the environment. Apply the CONFIG_FILE overlay first so its
// keys are visible here.
func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "dreamworld-api"),
		Environment: envutil.String("APP_ENV", "local"),
		Version:     envutil.String("APP_VERSION", "dev"),
		CORSOrigins: envutil.List("ALLOWED_ORIGINS"),

		DB:         db.ConfigFromEnv(),
		OpenAI:     openai.ConfigFromEnv(),
		Extraction: extraction.LLMConfigFromEnv(),
		Worker:     worker.ConfigFromEnv(),
		Sweeper:    sweeper.ConfigFromEnv(),
		Redis:      bus.RedisConfigFromEnv(),

		VocabularyPath:      envutil.String("STUB_VOCABULARY_YAML", ""),
		QueueSampleInterval: envutil.Duration("METRICS_QUEUE_SAMPLE_INTERVAL", 15*time.Second),
		RunWorkers:          envutil.Bool("RUN_WORKERS", true),
		ShutdownGracePeriod: envutil.Duration("SHUTDOWN_GRACE_PERIOD", 15*time.Second),
	}
}
