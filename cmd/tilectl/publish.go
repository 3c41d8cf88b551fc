package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/repository/cache"
	redisRepo "github.com/tile-microservice/internal/repository/redis"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish invalidation events to Redis streams",
}

var publishLayerCmd = &cobra.Command{
	Use:   "layer <id>",
	Short: "Announce that a layer changed so its cached tiles are dropped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid layer id %q", args[0])
		}
		return publish(cmd, domain.StreamLayerUpdated, domain.LayerUpdatedEvent{
			LayerID:   id,
			UpdatedAt: time.Now().UTC(),
		})
	},
}

var publishConnectionCmd = &cobra.Command{
	Use:   "connection <id>",
	Short: "Announce that a connection changed so its pools are reopened",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid connection id %q", args[0])
		}
		removed, _ := cmd.Flags().GetBool("removed")
		return publish(cmd, domain.StreamConnectionUpdated, domain.ConnectionUpdatedEvent{
			ConnectionID: id,
			Removed:      removed,
			UpdatedAt:    time.Now().UTC(),
		})
	},
}

func init() {
	publishConnectionCmd.Flags().Bool("removed", false, "The connection was deleted")
	publishCmd.AddCommand(publishLayerCmd, publishConnectionCmd)
	rootCmd.AddCommand(publishCmd)
}

func publish(cmd *cobra.Command, stream string, event interface{}) error {
	client, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		return err
	}
	defer client.Close()

	repo := redisRepo.NewStreamRepository(client.Client(), cfg.Worker.StreamReadTimeout, log)
	if err := repo.PublishToStream(cmd.Context(), stream, event); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", stream)
	return nil
}
