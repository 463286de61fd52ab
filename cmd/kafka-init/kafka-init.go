// kafka-init creates the audit topic before the auth service starts taking
// traffic. Meant to run once as an init container; idempotent.
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	kafkarepo "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/kafka"
)

func main() {
	brokers := strings.Split(env("KAFKA_BROKERS", "kafka:9092"), ",")
	topic := env("KAFKA_AUDIT_TOPIC", "auth.audit")
	partitions := envInt("KAFKA_PARTITIONS", 1)
	rf := envInt("KAFKA_RF", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err := kafkarepo.EnsureTopic(ctx, brokers, kafkarepo.TopicSpec{
		Name:              topic,
		NumPartitions:     partitions,
		ReplicationFactor: rf,
		ReadyTimeout:      30 * time.Second,
	}, nil)
	if err != nil {
		log.Fatalf("ensure topic %q: %v", topic, err)
	}
	log.Printf("topic %q ready", topic)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
