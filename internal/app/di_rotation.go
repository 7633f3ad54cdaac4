package app

import (
	"fmt"

	rotationRepository "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/repository"
	rotationUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/usecase"
)

// RecordRepository returns the encrypted record repository for the configured database driver.
func (c *Container) RecordRepository() (rotationUseCase.RecordRepository, error) {
	var err error
	c.recordRepoInit.Do(func() {
		c.recordRepo, err = c.initRecordRepository()
		if err != nil {
			c.initErrors["recordRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordRepo"]; exists {
		return nil, storedErr
	}
	return c.recordRepo, nil
}

// KeyRotationUseCase returns the key rotation use case.
func (c *Container) KeyRotationUseCase() (rotationUseCase.KeyRotationUseCase, error) {
	var err error
	c.keyRotationUseCaseInit.Do(func() {
		c.keyRotationUseCase, err = c.initKeyRotationUseCase()
		if err != nil {
			c.initErrors["keyRotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyRotationUseCase, nil
}

// initRecordRepository creates the record repository based on the database driver.
func (c *Container) initRecordRepository() (rotationUseCase.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres", "pgx":
		return rotationRepository.NewPostgreSQLRecordRepository(db), nil
	case "mysql":
		return rotationRepository.NewMySQLRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyRotationUseCase creates the key rotation use case with all its dependencies.
func (c *Container) initKeyRotationUseCase() (rotationUseCase.KeyRotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key rotation use case: %w", err)
	}

	recordRepo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for key rotation use case: %w", err)
	}

	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for key rotation use case: %w", err)
	}

	blindIndexer, err := c.BlindIndexer()
	if err != nil {
		return nil, fmt.Errorf("failed to get blind indexer for key rotation use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for key rotation use case: %w", err)
	}

	baseUseCase := rotationUseCase.NewKeyRotationUseCase(
		txManager,
		recordRepo,
		fieldCipher,
		blindIndexer,
		c.config.RotationBatchSize,
		businessMetrics,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		return rotationUseCase.NewKeyRotationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
