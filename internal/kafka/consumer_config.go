package kafka

import (
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerConfig — параметры читателя событий товаров.
// StartOffset: "first" | "last" (регистр и пробелы не важны; прочее трактуется как "last").
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string
	MaxWait     time.Duration // сколько брокер держит пустой fetch; 0 — дефолт kafka-go

	ProcessTimeout time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration
}

// Validate — без брокеров, топика или группы ручной коммит невозможен.
func (c *ConsumerConfig) Validate() error {
	var errs []error
	if len(c.Brokers) == 0 {
		errs = append(errs, errors.New("kafka: no brokers"))
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			errs = append(errs, errors.New("kafka: empty broker address"))
			break
		}
	}
	if strings.TrimSpace(c.Topic) == "" {
		errs = append(errs, errors.New("kafka: topic is required"))
	}
	if strings.TrimSpace(c.GroupID) == "" {
		errs = append(errs, errors.New("kafka: group id is required"))
	}
	if c.RetryMax > 0 && c.RetryInitial > c.RetryMax {
		errs = append(errs, errors.New("kafka: retry initial exceeds retry max"))
	}
	return errors.Join(errs...)
}

// ReaderConfig — конфигурация kafka.Reader с ручным коммитом оффсетов.
func (c *ConsumerConfig) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MaxWait:        c.MaxWait,
		CommitInterval: 0,
	}

	if strings.EqualFold(strings.TrimSpace(c.StartOffset), "first") {
		rc.StartOffset = kafka.FirstOffset
	} else {
		rc.StartOffset = kafka.LastOffset
	}
	return rc
}
