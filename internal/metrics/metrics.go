// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// voting.Recorderとvoter.Recorderの両方を満たす。
type Collector struct {
	votesAccepted   prometheus.Counter
	votesRejected   *prometheus.CounterVec
	integrityFaults prometheus.Counter
	invitesSent     prometheus.Counter
	invitesFailed   prometheus.Counter
	tokenConflicts  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	submitLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		votesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_votes_accepted_total",
			Help: "受理された投票の合計数",
		}),
		votesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotbox_votes_rejected_total",
			Help: "拒否された投票の理由別合計数",
		}, []string{"reason"}),
		integrityFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_integrity_faults_total",
			Help: "トークン使用フラグと投票記録の不整合検出数",
		}),
		invitesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_invites_sent_total",
			Help: "送信に成功した招待メールの合計数",
		}),
		invitesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_invites_failed_total",
			Help: "送信に失敗した招待メールの合計数",
		}),
		tokenConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_token_conflicts_total",
			Help: "トークン値衝突による再発行の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotbox_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ballotbox_vote_submit_latency_seconds",
			Help:    "投票受付処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.votesAccepted,
		c.votesRejected,
		c.integrityFaults,
		c.invitesSent,
		c.invitesFailed,
		c.tokenConflicts,
		c.httpStatus,
		c.submitLatency,
	)

	return c
}

// VoteAccepted は投票成功を記録する。
func (c *Collector) VoteAccepted() {
	c.votesAccepted.Inc()
}

// VoteRejected は投票拒否を理由コード付きで記録する。
func (c *Collector) VoteRejected(reason string) {
	c.votesRejected.WithLabelValues(reason).Inc()
}

// IntegrityFault は整合性違反の検出を記録する。
func (c *Collector) IntegrityFault() {
	c.integrityFaults.Inc()
}

// InviteSent は招待メールの送信成功を記録する。
func (c *Collector) InviteSent() {
	c.invitesSent.Inc()
}

// InviteFailed は招待メールの送信失敗を記録する。
func (c *Collector) InviteFailed() {
	c.invitesFailed.Inc()
}

// TokenConflict はトークン値衝突による再試行を記録する。
func (c *Collector) TokenConflict() {
	c.tokenConflicts.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveSubmitLatency は投票受付処理のレイテンシを記録する。
func (c *Collector) ObserveSubmitLatency(seconds float64) {
	c.submitLatency.Observe(seconds)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
