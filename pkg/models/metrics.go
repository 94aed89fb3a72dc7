package models

import "time"

// SystemMetrics is a snapshot of system and service load captured by the
// collector. Every field has a safe zero default; a snapshot is always
// fully populated even when every source is unreachable.
type SystemMetrics struct {
	CPUUsage          float64        `json:"cpu_usage"`
	MemoryUsage       float64        `json:"memory_usage"`
	DiskUsage         float64        `json:"disk_usage"`
	NetworkIO         map[string]int `json:"network_io"`
	ActiveConnections int            `json:"active_connections"`
	ResponseTimeAvg   float64        `json:"response_time_avg_ms"`
	ErrorRate         float64        `json:"error_rate"`
	QueueLength       int            `json:"queue_length"`
	Timestamp         time.Time      `json:"timestamp"`
}

// NewSystemMetrics returns a zeroed snapshot stamped with the current time.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		NetworkIO: map[string]int{
			"bytes_sent":   0,
			"bytes_recv":   0,
			"packets_sent": 0,
			"packets_recv": 0,
		},
		Timestamp: time.Now(),
	}
}

// ShardHealth is one shard's entry in the storage health report.
type ShardHealth struct {
	ShardID           string `json:"shard_id"`
	ActiveConnections int    `json:"active_connections"`
	Reachable         bool   `json:"reachable"`
}
