package kafka_test

import (
	"slices"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	mykafka "github.com/Gunvolt24/yote/internal/kafka"
)

func validConfig() mykafka.ConsumerConfig {
	return mykafka.ConsumerConfig{
		Brokers: []string{"k1:9092", "k2:9092"},
		Topic:   "products",
		GroupID: "products-cache",
		MaxWait: 250 * time.Millisecond,
	}
}

func TestConsumerConfig_StartOffset(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"first":      kafkago.FirstOffset,
		"FIRST":      kafkago.FirstOffset,
		" FiRsT \n":  kafkago.FirstOffset,
		"":           kafkago.LastOffset,
		"last":       kafkago.LastOffset,
		"earliest":   kafkago.LastOffset,
		"first-ever": kafkago.LastOffset,
	}
	for in, want := range cases {
		cfg := validConfig()
		cfg.StartOffset = in
		if got := cfg.ReaderConfig().StartOffset; got != want {
			t.Errorf("StartOffset(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestConsumerConfig_ReaderConfigFields(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	rc := cfg.ReaderConfig()

	if !slices.Equal(rc.Brokers, cfg.Brokers) || rc.Topic != "products" || rc.GroupID != "products-cache" {
		t.Fatalf("reader config = %+v", rc)
	}
	if rc.MaxWait != 250*time.Millisecond {
		t.Fatalf("MaxWait = %v", rc.MaxWait)
	}
	// ручной коммит
	if rc.CommitInterval != 0 {
		t.Fatalf("CommitInterval = %v, want 0", rc.CommitInterval)
	}
}

func TestConsumerConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*mykafka.ConsumerConfig)
		wantErr string
	}{
		{"ok", func(*mykafka.ConsumerConfig) {}, ""},
		{"no brokers", func(c *mykafka.ConsumerConfig) { c.Brokers = nil }, "no brokers"},
		{"blank broker", func(c *mykafka.ConsumerConfig) { c.Brokers = []string{"k1:9092", " "} }, "empty broker"},
		{"no topic", func(c *mykafka.ConsumerConfig) { c.Topic = "  " }, "topic is required"},
		{"no group", func(c *mykafka.ConsumerConfig) { c.GroupID = "" }, "group id is required"},
		{"retry order", func(c *mykafka.ConsumerConfig) {
			c.RetryInitial, c.RetryMax = 10*time.Second, time.Second
		}, "retry initial"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
