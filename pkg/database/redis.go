package database

import (
	"context"

	"github.com/go-redis/redis/v8"

	"suvidha-go/pkg/log"
)

// RDB 为空表示未启用 Redis，调用方需要按无缓存处理。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接，addr 为空时跳过。
func InitRedis(addr, password string, db int) {
	if addr == "" {
		log.Info("Redis address not configured, running without cache")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := RDB.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	log.Info("Redis client connected successfully")
}
