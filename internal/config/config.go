package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Provider  Provider  `mapstructure:"provider"`
	Benchmark Benchmark `mapstructure:"benchmark"`
	Output    Output    `mapstructure:"output"`
	Logger    Logger    `mapstructure:"logger"`
	Database  Database  `mapstructure:"database"`
}

// Provider holds the configuration for the market-data provider client.
type Provider struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Benchmark holds the configuration for the per-symbol benchmark run.
type Benchmark struct {
	Symbols       []string `mapstructure:"symbols"`
	StartDate     string   `mapstructure:"start_date"`
	EndDate       string   `mapstructure:"end_date"`
	TrainFraction float64  `mapstructure:"train_fraction"`
	Seed          int64    `mapstructure:"seed"`
	Models        Models   `mapstructure:"models"`
}

// Models holds the hyperparameters for the four benchmarked classifiers.
// These are fixed per run and never tuned at runtime.
type Models struct {
	Logistic         Logistic         `mapstructure:"logistic_regression"`
	RandomForest     RandomForest     `mapstructure:"random_forest"`
	SVM              SVM              `mapstructure:"svm"`
	GradientBoosting GradientBoosting `mapstructure:"gradient_boosting"`
}

// Logistic holds the hyperparameters for the logistic regression model.
type Logistic struct {
	LearningRate float64 `mapstructure:"learning_rate"`
	Epochs       int     `mapstructure:"epochs"`
	L2           float64 `mapstructure:"l2"`
}

// RandomForest holds the hyperparameters for the bagged-tree ensemble.
type RandomForest struct {
	Trees    int `mapstructure:"trees"`
	MaxDepth int `mapstructure:"max_depth"`
	MinLeaf  int `mapstructure:"min_leaf"`
}

// SVM holds the hyperparameters for the linear soft-margin classifier.
type SVM struct {
	Lambda float64 `mapstructure:"lambda"`
	Epochs int     `mapstructure:"epochs"`
}

// GradientBoosting holds the hyperparameters for the boosted-tree model.
type GradientBoosting struct {
	Trees        int     `mapstructure:"trees"`
	LearningRate float64 `mapstructure:"learning_rate"`
	MaxDepth     int     `mapstructure:"max_depth"`
	Subsample    float64 `mapstructure:"subsample"`
}

// Output holds the configuration for chart and result artifacts.
type Output struct {
	Dir string `mapstructure:"dir"`
}

// Database holds the configuration for the run-history database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DateRange parses the configured inclusive date bounds.
func (b *Benchmark) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid start_date %q: %w", b.StartDate, err)
	}
	end, err = time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid end_date %q: %w", b.EndDate, err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end_date %s precedes start_date %s", b.EndDate, b.StartDate)
	}
	return start, end, nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables (STOCKBENCH_*) to override config file
	viper.SetEnvPrefix("stockbench")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("provider.base_url", "https://stooq.com")
	viper.SetDefault("provider.rate_limit", 5) // requests per second
	viper.SetDefault("provider.rate_limit_burst", 2)
	viper.SetDefault("provider.max_retries", 3)
	viper.SetDefault("benchmark.train_fraction", 0.8)
	viper.SetDefault("benchmark.seed", 42)
	viper.SetDefault("benchmark.models.logistic_regression.learning_rate", 0.1)
	viper.SetDefault("benchmark.models.logistic_regression.epochs", 500)
	viper.SetDefault("benchmark.models.logistic_regression.l2", 0.001)
	viper.SetDefault("benchmark.models.random_forest.trees", 100)
	viper.SetDefault("benchmark.models.random_forest.max_depth", 6)
	viper.SetDefault("benchmark.models.random_forest.min_leaf", 2)
	viper.SetDefault("benchmark.models.svm.lambda", 0.01)
	viper.SetDefault("benchmark.models.svm.epochs", 200)
	viper.SetDefault("benchmark.models.gradient_boosting.trees", 100)
	viper.SetDefault("benchmark.models.gradient_boosting.learning_rate", 0.1)
	viper.SetDefault("benchmark.models.gradient_boosting.max_depth", 3)
	viper.SetDefault("benchmark.models.gradient_boosting.subsample", 0.8)
	viper.SetDefault("output.dir", "./results")
	viper.SetDefault("database.dsn", "stockbench.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
