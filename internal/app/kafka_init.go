package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
)

// initKafkaProducer создаёт producer, если список брокеров не пуст.
// Ошибка подключения не фатальна: сервис продолжает работать без
// публикации событий, outbox копит pending-сообщения.
func initKafkaProducer(brokers string, logger *log.Entry) *kafka.Producer {
	if brokers == "" {
		logger.Warn("kafka brokers are not configured, outbox publishing is disabled")
		return nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer
}

// closeKafka закрывает producer, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
