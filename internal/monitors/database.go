package monitors

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const defaultTimeout = 2 * time.Second

// Probe checks that one dependency is reachable.
type Probe interface {
	Name() string
	Check(ctx context.Context) error
}

type DatabaseProbe struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewDatabaseProbe(db *gorm.DB) *DatabaseProbe {
	return &DatabaseProbe{db: db, timeout: defaultTimeout}
}

func (p *DatabaseProbe) Name() string { return "database" }

func (p *DatabaseProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %v", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	return nil
}
