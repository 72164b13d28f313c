package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Debug           bool
		TestMode        bool
		AppName         string
		Build           string
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		SendgridApiKey  string
		RollbarToken    string

		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Auth     AuthConfig
		Media    MediaConfig
		Exam     ExamConfig
		News     NewsConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSOrigins               []string
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	AuthConfig struct {
		PasswordResetTimeoutDelta time.Duration
		LoginMaxAttempts          int
		LoginLockout              time.Duration
	}

	MediaConfig struct {
		Dir       string
		BaseURL   string
		GCSBucket string
		MaxSize   int64
	}

	// ExamConfig describes the third-party form that owns exam reservations.
	ExamConfig struct {
		FormURL     string
		NameField   string
		EmailField  string
		PhoneField  string
		TokenField  string
		BranchField string
	}

	NewsConfig struct {
		ExtendedPreview bool
		SummaryLength   int
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment; `config/.env.<env>` is loaded first when present.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			CORSOrigins:               splitList(v.GetString("server.corsOrigins")),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			PasswordResetTimeoutDelta: v.GetDuration("auth.passwordResetTimeoutDelta"),
			LoginMaxAttempts:          v.GetInt("auth.loginMaxAttempts"),
			LoginLockout:              v.GetDuration("auth.loginLockout"),
		},
		Media: MediaConfig{
			Dir:       v.GetString("media.dir"),
			BaseURL:   v.GetString("media.baseURL"),
			GCSBucket: v.GetString("media.gcsBucket"),
			MaxSize:   v.GetInt64("media.maxSize"),
		},
		Exam: ExamConfig{
			FormURL:     v.GetString("exam.formURL"),
			NameField:   v.GetString("exam.nameField"),
			EmailField:  v.GetString("exam.emailField"),
			PhoneField:  v.GetString("exam.phoneField"),
			TokenField:  v.GetString("exam.tokenField"),
			BranchField: v.GetString("exam.branchField"),
		},
		News: NewsConfig{
			ExtendedPreview: v.GetBool("news.extendedPreview"),
			SummaryLength:   v.GetInt("news.summaryLength"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Frage EDU")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "frage-edu-secret-key-2025")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.corsOrigins", "*")
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "frageedu")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.inMemory", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("auth.loginMaxAttempts", 5)
	v.SetDefault("auth.loginLockout", 15*time.Minute)

	v.SetDefault("media.dir", "uploads")
	v.SetDefault("media.baseURL", "/uploads")
	v.SetDefault("media.gcsBucket", "")
	v.SetDefault("media.maxSize", int64(5<<20))

	v.SetDefault("exam.formURL", "https://forms.frage.edu/exam-reservation")
	v.SetDefault("exam.nameField", "name")
	v.SetDefault("exam.emailField", "email")
	v.SetDefault("exam.phoneField", "phone")
	v.SetDefault("exam.tokenField", "token")
	v.SetDefault("exam.branchField", "brchType")

	v.SetDefault("news.extendedPreview", false)
	v.SetDefault("news.summaryLength", 200)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewTestConfig returns the configuration used by tests: no .env lookup, no external services.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v, "TEST")
	return &Config{
		Env:              "TEST",
		Debug:            false,
		TestMode:         true,
		AppName:          v.GetString("appName"),
		Build:            "test",
		SecretKey:        "secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			DisableReqLogs:            true,
		},
		Database: DatabaseConfig{InMemory: true},
		Auth: AuthConfig{
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
			LoginMaxAttempts:          5,
			LoginLockout:              15 * time.Minute,
		},
		Media: MediaConfig{
			BaseURL: "/uploads",
			MaxSize: 1 << 20,
		},
		Exam: ExamConfig{
			FormURL:     v.GetString("exam.formURL"),
			NameField:   "name",
			EmailField:  "email",
			PhoneField:  "phone",
			TokenField:  "token",
			BranchField: "brchType",
		},
		News: NewsConfig{SummaryLength: 200},
	}
}
