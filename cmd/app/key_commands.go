package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kvhuynh79-oss/sda-management-sub004/cmd/app/commands"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/app"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/config"
	cryptoService "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/service"
)

func kmsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "kms-provider",
			Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
		},
		&cli.StringFlag{
			Name:  "kms-key-uri",
			Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
		},
	}
}

func rotationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "table",
			Aliases: []string{"t"},
			Usage:   "Table to process, repeatable (omit to process every table)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: 'text' or 'json'",
		},
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-encryption-key",
			Usage: "Generate a field encryption key for a key version",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "key-version",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Key version (v1 to v10)",
				},
			}, kmsFlags()...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateEncryptionKey(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("key-version"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "create-hmac-key",
			Usage: "Generate the blind index HMAC key",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "derive-from",
					Usage: "Base64 input keying material to derive the key from with HKDF-SHA256",
				},
			}, kmsFlags()...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateHMACKey(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("derive-from"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "rotate-keys",
			Usage: "Re-encrypt every encrypted field with CURRENT_KEY_VERSION",
			Flags: rotationFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyRotationUseCase, err := container.KeyRotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateKeys(
					ctx,
					keyRotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.StringSlice("table"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "encrypt-existing",
			Usage: "Encrypt plaintext values of encrypted fields and fill missing blind indexes",
			Flags: rotationFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyRotationUseCase, err := container.KeyRotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunEncryptExisting(
					ctx,
					keyRotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.StringSlice("table"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "blind-index",
			Usage: "Print the blind index token of a value",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "value",
					Required: true,
					Usage:    "Value to index (trimmed and lowercased before hashing)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				blindIndexer, err := container.BlindIndexer()
				if err != nil {
					return err
				}

				return commands.RunBlindIndex(
					ctx,
					blindIndexer,
					commands.DefaultIO().Writer,
					cmd.String("value"),
					cmd.String("format"),
				)
			},
		},
	}
}
