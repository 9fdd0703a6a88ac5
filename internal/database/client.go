// Package database opens the gorm connection used by the forecast history store.
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// Client holds the connection to the history database
type Client struct {
	config config.DatabaseData
	DB     *gorm.DB // Exported so it can be accessed from other packages
	logger *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(c config.DatabaseData, logger *zap.SugaredLogger) *Client {
	return &Client{
		config: c,
		logger: logger,
	}
}

// Connect opens the database and migrates the history tables
func (c *Client) Connect() error {
	db, err := CreateConnection(c.config.Driver, c.config.DSN)
	if err != nil {
		c.logger.Warnf("unable to open %s history database: %v", c.config.Driver, err)
		return err
	}

	c.logger.Infof("migrating history tables...")
	if err := db.AutoMigrate(&ForecastRun{}, &DailyEnergyTotal{}); err != nil {
		return fmt.Errorf("migrating history tables: %w", err)
	}

	c.DB = db
	c.logger.Infof("%s history database connection successful", c.config.Driver)
	return nil
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(driver, dsn string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		// pure-Go driver registered by modernc.org/sqlite
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	log.Infof("connecting to %s database...", driver)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, err
	}

	return db, nil
}
