package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./config/local.yaml"

type Config struct {
	Env          string `yaml:"env" env:"APP_ENV" env-default:"prod"`
	ErrorLogPath string `yaml:"error_log_path" env-default:"errors.log"`
	HTTPServer   `yaml:"http_server"`
	Storage      Storage `yaml:"storage"`
	Lock         Lock    `yaml:"lock"`
	// AuthzPolicy overrides the built-in role table when set.
	AuthzPolicy string   `yaml:"authz_policy" env:"AUTHZ_POLICY"`
	CORSOrigins []string `yaml:"cors_origins" env-default:"http://localhost:5173"`
	Users       []User   `yaml:"users"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Storage struct {
	// Driver is mysql or memory.
	Driver     string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mysql"`
	DBUser     string `yaml:"db_user" env:"DB_USER"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD"`
	DBHost     string `yaml:"db_host" env:"DB_HOST" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env:"DB_PORT" env-default:"3306"`
	DBName     string `yaml:"db_name" env:"DB_NAME"`
	MaxOpen    int    `yaml:"max_open_conns" env-default:"20"`
	// SeedPath is the master data file loaded by the memory driver.
	SeedPath string `yaml:"seed_path"`
}

type Lock struct {
	// Backend is local or redis.
	Backend       string `yaml:"backend" env:"LOCK_BACKEND" env-default:"local"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env-default:"0"`
	// TTL is the job lease. It is not renewed, so it must outlive the longest
	// request.
	TTL time.Duration `yaml:"ttl" env-default:"30s"`
}

// User is a basic-auth login mapped to an employee and a role.
type User struct {
	Login      string `yaml:"login"`
	Password   string `yaml:"password"`
	EmployeeID int64  `yaml:"employee_id"`
	Role       string `yaml:"role"`
}

// Load reads path and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "mysql":
		if c.Storage.DBUser == "" || c.Storage.DBName == "" {
			return fmt.Errorf("config: storage.db_user and storage.db_name are required for the mysql driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Lock.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("config: unknown lock backend %q", c.Lock.Backend)
	}
	for _, u := range c.Users {
		if u.Login == "" || u.Password == "" || u.EmployeeID <= 0 {
			return fmt.Errorf("config: user entries need login, password and employee_id")
		}
	}
	return nil
}

// MustConfig loads CONFIG_PATH, or ./config/local.yaml when it is unset.
func MustConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("%s", err)
	}
	return cfg
}
