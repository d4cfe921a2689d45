package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/config"
	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/ui"
	"github.com/sirilvk/exl-loader/pkg/drivers/redis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHealthCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the Redis connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, v)
		},
	}
}

func runHealth(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Read(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer cache.Close()

	status, err := cache.Health(ctx)
	if err != nil {
		return err
	}

	ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr()).Health(status)
	if status.Status == redis.HealthUnhealthy {
		return fmt.Errorf("redis at %s is unhealthy: %s", cache.Config().Address, status.Message)
	}
	return nil
}
