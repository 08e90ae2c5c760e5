// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"broadway/config"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// SessionCacheClient stores each chat session's cart and checkout stage.
var SessionCacheClient *redis.Client

// Conversation state and the job queue share one Redis server on different logical databases.
func redisOptions(db int) *redis.Options {
	return &redis.Options{
		Addr:         config.AppConfig.RedisAddr,
		Password:     config.AppConfig.RedisPassword,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	}
}

// InitSessionCache connects the conversation-state client and exits if Redis is down.
func InitSessionCache() {
	client := redis.NewClient(redisOptions(config.AppConfig.RedisSessionDB))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis (session db %d): %v", config.AppConfig.RedisSessionDB, err)
	}
	SessionCacheClient = client
}

func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// QueueRedisOpt points asynq at the queue database.
func QueueRedisOpt() asynq.RedisClientOpt {
	opt := redisOptions(config.AppConfig.RedisQueueDB)
	return asynq.RedisClientOpt{
		Addr:         opt.Addr,
		Password:     opt.Password,
		DB:           opt.DB,
		DialTimeout:  opt.DialTimeout,
		ReadTimeout:  opt.ReadTimeout,
		WriteTimeout: opt.WriteTimeout,
		PoolSize:     opt.PoolSize,
	}
}
