package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/newsanalyzer/govkb/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"govkb"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// FederalRegisterOptions configures the external agency source client.
type FederalRegisterOptions struct {
	BaseURL        string        `env:"FEDERAL_REGISTER_BASE_URL" envDefault:"https://www.federalregister.gov/api/v1"`
	MinRequestGap  time.Duration `env:"FEDERAL_REGISTER_MIN_REQUEST_GAP" envDefault:"100ms"`
	RetryAttempts  int           `env:"FEDERAL_REGISTER_RETRY_ATTEMPTS" envDefault:"3"`
	RequestTimeout time.Duration `env:"FEDERAL_REGISTER_REQUEST_TIMEOUT" envDefault:"30s"`
}

func (f *FederalRegisterOptions) Validate() error {
	if f.BaseURL == "" {
		return fmt.Errorf("federal register base URL must not be empty")
	}
	if f.RetryAttempts < 1 {
		return fmt.Errorf("federal register retry attempts must be at least 1, got %d", f.RetryAttempts)
	}
	if f.MinRequestGap < 0 {
		return fmt.Errorf("federal register min request gap must be non-negative, got %s", f.MinRequestGap)
	}
	return nil
}

// GovOrgSyncOptions configures the background sync scheduler.
type GovOrgSyncOptions struct {
	ScheduleEnabled bool          `env:"GOV_ORG_SYNC_SCHEDULE_ENABLED" envDefault:"false"`
	Interval        time.Duration `env:"GOV_ORG_SYNC_INTERVAL" envDefault:"168h"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type Configuration struct {
	Database        DatabaseOptions
	FederalRegister FederalRegisterOptions
	GovOrgSync      GovOrgSyncOptions
	Prometheus      PrometheusOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	MaxUploadSize    int64  `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.FederalRegister.Validate(); err != nil {
		return fmt.Errorf("federal register configuration error: %w", err)
	}

	// An empty LOG_PATH keeps logs on stderr only.
	if c.LogPath == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	} else {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

func (c *Configuration) Unload() {
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}
