package redis

/*
Плагин публикации событий в канал Redis.

Настройки:

host = "localhost"
port = "6379"
password = ""
db = "0"
channel = "bustrack:events"
format = "json"
*/

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const defaultChannel = "bustrack:events"

type Connector struct {
	client *redis.Client
	config map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg
	if c.config["channel"] == "" {
		c.config["channel"] = defaultChannel
	}

	db := 0
	if v := cfg["db"]; v != "" {
		var err error
		if db, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("некорректный номер базы redis: %v", err)
		}
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg["host"], cfg["port"]),
		Password: cfg["password"],
		DB:       db,
	})
	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
	}
	return nil
}

func (c *Connector) Save(msg interface{ Encode(string) ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на событие")
	}

	body, err := msg.Encode(c.config["format"])
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %v", err)
	}

	if err := c.client.Publish(context.Background(), c.config["channel"], body).Err(); err != nil {
		return fmt.Errorf("не удалось опубликовать событие: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}
