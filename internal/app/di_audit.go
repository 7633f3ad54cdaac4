package app

import (
	"fmt"

	auditHTTP "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/http"
	auditRepository "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/repository"
	auditService "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/service"
	auditUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/usecase"
)

// AppendLocker returns the per-organization append lock. It is Redis-backed when REDIS_URL is
// set and process-local otherwise.
func (c *Container) AppendLocker() (auditService.AppendLocker, error) {
	var err error
	c.appendLockerInit.Do(func() {
		c.appendLocker, err = c.initAppendLocker()
		if err != nil {
			c.initErrors["appendLocker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["appendLocker"]; exists {
		return nil, storedErr
	}
	return c.appendLocker, nil
}

// EntryRepository returns the audit entry repository for the configured database driver.
func (c *Container) EntryRepository() (auditUseCase.EntryRepository, error) {
	var err error
	c.entryRepoInit.Do(func() {
		c.entryRepo, err = c.initEntryRepository()
		if err != nil {
			c.initErrors["entryRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["entryRepo"]; exists {
		return nil, storedErr
	}
	return c.entryRepo, nil
}

// AuditChainUseCase returns the audit chain use case.
func (c *Container) AuditChainUseCase() (auditUseCase.AuditChainUseCase, error) {
	var err error
	c.auditChainUseCaseInit.Do(func() {
		c.auditChainUseCase, err = c.initAuditChainUseCase()
		if err != nil {
			c.initErrors["auditChainUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditChainUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditChainUseCase, nil
}

// IntegrityAuditorUseCase returns the chain verification use case.
func (c *Container) IntegrityAuditorUseCase() (auditUseCase.IntegrityAuditorUseCase, error) {
	var err error
	c.integrityAuditorUseCaseInit.Do(func() {
		c.integrityAuditorUseCase, err = c.initIntegrityAuditorUseCase()
		if err != nil {
			c.initErrors["integrityAuditorUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["integrityAuditorUseCase"]; exists {
		return nil, storedErr
	}
	return c.integrityAuditorUseCase, nil
}

// AuditLogHandler returns the HTTP handler of the audit log API.
func (c *Container) AuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	var err error
	c.auditLogHandlerInit.Do(func() {
		c.auditLogHandler, err = c.initAuditLogHandler()
		if err != nil {
			c.initErrors["auditLogHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogHandler"]; exists {
		return nil, storedErr
	}
	return c.auditLogHandler, nil
}

// initAppendLocker selects the lock implementation.
func (c *Container) initAppendLocker() (auditService.AppendLocker, error) {
	client, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for append locker: %w", err)
	}
	if client == nil {
		return auditService.NewLocalAppendLocker(), nil
	}
	return auditService.NewRedisAppendLocker(client, c.config.AuditAppendLockTTL, c.Logger()), nil
}

// initEntryRepository creates the entry repository based on the database driver.
func (c *Container) initEntryRepository() (auditUseCase.EntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for entry repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres", "pgx":
		return auditRepository.NewPostgreSQLEntryRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLEntryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditChainUseCase creates the audit chain use case with all its dependencies.
func (c *Container) initAuditChainUseCase() (auditUseCase.AuditChainUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for audit chain use case: %w", err)
	}

	entryRepo, err := c.EntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry repository for audit chain use case: %w", err)
	}

	locker, err := c.AppendLocker()
	if err != nil {
		return nil, fmt.Errorf("failed to get append locker for audit chain use case: %w", err)
	}

	baseUseCase := auditUseCase.NewAuditChainUseCase(
		txManager,
		entryRepo,
		auditService.NewChainHasher(),
		locker,
		c.config.AuditAppendMaxRetries,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for audit chain use case: %w", err)
		}
		return auditUseCase.NewAuditChainUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initIntegrityAuditorUseCase creates the integrity auditor use case.
func (c *Container) initIntegrityAuditorUseCase() (auditUseCase.IntegrityAuditorUseCase, error) {
	entryRepo, err := c.EntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry repository for integrity auditor use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for integrity auditor use case: %w", err)
	}

	baseUseCase := auditUseCase.NewIntegrityAuditorUseCase(
		entryRepo,
		auditService.NewChainHasher(),
		c.config.AuditVerifyBatchSize,
		businessMetrics,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		return auditUseCase.NewIntegrityAuditorUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuditLogHandler creates the audit log HTTP handler.
func (c *Container) initAuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	chainUseCase, err := c.AuditChainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain use case for audit log handler: %w", err)
	}

	auditorUseCase, err := c.IntegrityAuditorUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get integrity auditor use case for audit log handler: %w", err)
	}

	return auditHTTP.NewAuditLogHandler(chainUseCase, auditorUseCase, c.Logger()), nil
}
