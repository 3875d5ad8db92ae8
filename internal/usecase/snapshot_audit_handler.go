package usecase

import (
	"context"
	"encoding/json"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"
)

// SnapshotAuditHandler consumes emitted snapshots from Kafka and writes
// them into the ClickHouse update log. Used when the engine defers audit
// writes to the consumer path.
type SnapshotAuditHandler struct {
	topic     string
	updateLog domrepo.UpdateLog
	metrics   domrepo.Metrics
}

func NewSnapshotAuditHandler(topic string, updateLog domrepo.UpdateLog, metrics domrepo.Metrics) *SnapshotAuditHandler {
	return &SnapshotAuditHandler{topic: topic, updateLog: updateLog, metrics: metrics}
}

func (h *SnapshotAuditHandler) Topic() string { return h.topic }

func (h *SnapshotAuditHandler) Handle(ctx context.Context, b []byte) error {
	var snap models.RiskSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("audit_unmarshal")
		return err
	}

	// E2E latency from snapshot time to audit write (approx).
	h.metrics.RecordLatency("audit_e2e_seconds", time.Since(snap.Timestamp).Seconds())

	start := time.Now()
	err := h.updateLog.AppendSnapshot(ctx, &snap)
	h.metrics.RecordLatency("audit_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("audit_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*SnapshotAuditHandler)(nil)
