package config

import (
	"facad/utils"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

const processEventTopic = "career-process-events"

func CreateProcessEventTopic() error {
	broker := Env().KafkaBroker
	if broker == "" {
		return fmt.Errorf("KAFKA_BROKER environment variable not set")
	}

	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return err
	}
	defer utils.Closer(conn)()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer utils.Closer(controllerConn)()

	topicConfig := kafka.TopicConfig{
		Topic:             processEventTopic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		ConfigEntries: []kafka.ConfigEntry{
			// 30 days retention, decisions are audit-relevant
			{
				ConfigName:  "retention.ms",
				ConfigValue: "2592000000",
			},
		},
	}

	return controllerConn.CreateTopics(topicConfig)
}

func GetProcessEventWriter() (*kafka.Writer, error) {
	broker := Env().KafkaBroker
	if broker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER environment variable not set")
	}
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   processEventTopic,
	}), nil
}

func GetProcessEventReader(consumerId int) (*kafka.Reader, error) {
	broker := Env().KafkaBroker
	if broker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER environment variable not set")
	}
	err := CreateProcessEventTopic()
	if err != nil {
		return nil, err
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       processEventTopic,
		GroupID:     fmt.Sprintf("%s-%d", processEventTopic, consumerId),
		StartOffset: kafka.FirstOffset,
	}), nil
}
