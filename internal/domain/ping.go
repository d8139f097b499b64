package domain

import "time"

// ICMP is a single echo reply.
type ICMP struct {
	Seq  int     `json:"seq"`
	TTL  int     `json:"ttl"`
	Time float64 `json:"time"` // milliseconds
}

// PingStats summarizes a probe run.
type PingStats struct {
	Transmitted int     `json:"transmitted"`
	Received    int     `json:"received"`
	Time        float64 `json:"time"` // milliseconds
}

// Ping is one persisted probe result. Pings are immutable once created.
type Ping struct {
	ID        string    `json:"id"`
	HostID    string    `json:"hostId"`
	Host      *Host     `json:"host,omitempty"`
	Output    string    `json:"output"`
	ICMPs     []ICMP    `json:"icmps"`
	Stats     PingStats `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}
