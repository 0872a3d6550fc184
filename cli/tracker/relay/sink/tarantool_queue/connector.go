package tarantool_queue

/*
Плагин для работы с Tarantool queue.

Настройки:

host = "localhost"
port = "3301"
user = "user"
password = "pass"
max_recons = 5
timeout = 1
reconnect = 1
queue = "bus_events"
format = "msgpack"
*/

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"
)

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
	config     map[string]string
}

func intParam(cfg map[string]string, key string, def int) (int, error) {
	v, ok := cfg[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("не удалось получить %s: %v", key, err)
	}
	return n, nil
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg
	conStr := fmt.Sprintf("%s:%s", cfg["host"], cfg["port"])

	maxRecons, err := intParam(cfg, "max_recons", 5)
	if err != nil {
		return err
	}
	timeout, err := intParam(cfg, "timeout", 1)
	if err != nil {
		return err
	}
	reconnect, err := intParam(cfg, "reconnect", 1)
	if err != nil {
		return err
	}
	opts := tarantool.Opts{
		Timeout:       time.Duration(timeout) * time.Second,
		Reconnect:     time.Duration(reconnect) * time.Second,
		MaxReconnects: uint(maxRecons),
		User:          cfg["user"],
		Pass:          cfg["password"],
	}

	c.connection, err = tarantool.Connect(conStr, opts)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к Tarantool: %v", err)
	}

	name := cfg["queue"]
	if name == "" {
		name = "bus_events"
	}
	c.queue = queue.New(c.connection, name)
	return nil
}

func (c *Connector) Save(msg interface{ Encode(string) ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на событие")
	}

	format := c.config["format"]
	if format == "" {
		format = "msgpack"
	}
	body, err := msg.Encode(format)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %v", err)
	}

	if _, err = c.queue.Put(body); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.connection.Close()
}
