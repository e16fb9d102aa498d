// Package kafka publica las alertas operativas del motor en un tópico Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

var _ ports.AlertPublisher = (*AlertPublisher)(nil)

const publishTimeout = 5 * time.Second

// AlertPublisher adaptador Kafka del puerto de alertas. Con la lista de brokers
// vacía queda deshabilitado: Publish no hace nada y no falla, así los casos de
// uso no distinguen entre "sin Kafka" y "con Kafka".
type AlertPublisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewAlertPublisher construye el publicador. brokers vacío = deshabilitado.
func NewAlertPublisher(brokers []string, topic string, log *logger.Logger) *AlertPublisher {
	if len(brokers) == 0 {
		return &AlertPublisher{log: log}
	}
	return &AlertPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		log: log,
	}
}

// Publish serializa y envía la alerta. Es fire-and-forget: un fallo de envío se
// registra y se devuelve, pero los llamadores lo ignoran para no bloquear ni
// revertir la operación de inventario que originó la alerta.
// La clave de partición es el merchant_id: las alertas de un comercio llegan en orden.
func (p *AlertPublisher) Publish(ctx context.Context, alert ports.Alert) error {
	if p.writer == nil {
		return nil
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	value, err := json.Marshal(alert)
	if err != nil {
		p.log.Error().Err(err).Str("type", alert.Type).Msg("serialización de alerta")
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.MerchantID),
		Value: value,
	}); err != nil {
		p.log.Error().
			Err(err).
			Str("type", alert.Type).
			Str("merchant_id", alert.MerchantID).
			Msg("publicación de alerta en Kafka")
		return err
	}
	return nil
}

// Close cierra el writer en el apagado. Nil-safe cuando está deshabilitado.
func (p *AlertPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
