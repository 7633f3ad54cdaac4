package app

import (
	"context"
	"fmt"
	"log/slog"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	cryptoService "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/service"
)

// KMSKeeper returns the keeper that unwraps KMS-encrypted key slots, or nil when KMS_KEY_URI
// is not configured and the slots hold raw keys.
func (c *Container) KMSKeeper() (cryptoDomain.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		c.kmsKeeper, err = c.initKMSKeeper()
		if err != nil {
			c.initErrors["kmsKeeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kmsKeeper"]; exists {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// KeyRegistry returns the versioned key registry reading key slots from the environment.
func (c *Container) KeyRegistry() (*cryptoService.KeyRegistry, error) {
	var err error
	c.keyRegistryInit.Do(func() {
		c.keyRegistry, err = c.initKeyRegistry()
		if err != nil {
			c.initErrors["keyRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRegistry"]; exists {
		return nil, storedErr
	}
	return c.keyRegistry, nil
}

// FieldCipher returns the field cipher.
func (c *Container) FieldCipher() (*cryptoService.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		c.fieldCipher, err = c.initFieldCipher()
		if err != nil {
			c.initErrors["fieldCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// BlindIndexer returns the blind indexer.
func (c *Container) BlindIndexer() (*cryptoService.BlindIndexer, error) {
	var err error
	c.blindIndexerInit.Do(func() {
		c.blindIndexer, err = c.initBlindIndexer()
		if err != nil {
			c.initErrors["blindIndexer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["blindIndexer"]; exists {
		return nil, storedErr
	}
	return c.blindIndexer, nil
}

// initKMSKeeper opens the keeper of KMS_KEY_URI.
func (c *Container) initKMSKeeper() (cryptoDomain.KMSKeeper, error) {
	if c.config.KMSKeyURI == "" {
		return nil, nil
	}

	if err := cryptoService.CheckKMSProvider(c.config.KMSProvider, c.config.KMSKeyURI); err != nil {
		return nil, err
	}

	keeper, err := cryptoService.NewKMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open kms keeper: %w", err)
	}

	c.Logger().Info("key slots are unwrapped with KMS",
		slog.String("kms_key_uri", cryptoService.RedactKeyURI(c.config.KMSKeyURI)),
	)
	return keeper, nil
}

// initKeyRegistry creates the key registry with the configured current version and algorithm.
func (c *Container) initKeyRegistry() (*cryptoService.KeyRegistry, error) {
	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for key registry: %w", err)
	}

	registry, err := cryptoService.NewKeyRegistry(
		cryptoService.NewEnvKeySource(),
		cryptoService.NewAEADManager(),
		keeper,
		c.config.CurrentKeyVersion,
		c.config.EncryptionAlgorithm,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key registry: %w", err)
	}
	return registry, nil
}

// initFieldCipher creates the field cipher on top of the key registry.
func (c *Container) initFieldCipher() (*cryptoService.FieldCipher, error) {
	registry, err := c.KeyRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get key registry for field cipher: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for field cipher: %w", err)
	}

	return cryptoService.NewFieldCipher(registry, c.Logger(), businessMetrics), nil
}

// initBlindIndexer creates the blind indexer on top of the key registry.
func (c *Container) initBlindIndexer() (*cryptoService.BlindIndexer, error) {
	registry, err := c.KeyRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get key registry for blind indexer: %w", err)
	}
	return cryptoService.NewBlindIndexer(registry), nil
}
