package cluster

// WorkerStat is one tracked worker in a stats snapshot.
type WorkerStat struct {
	ID   int  `json:"id"`
	PID  int  `json:"pid"`
	Dead bool `json:"dead"`
}

// Stats is a point-in-time, read-only summary of pool composition and
// health. It is a primary-only capability: workers answer with nil,
// signaling "ask the primary instead".
type Stats struct {
	PrimaryPID   int          `json:"primary_pid"`
	Workers      []WorkerStat `json:"workers"`
	TotalWorkers int          `json:"total_workers"` // currently starting or online
	MaxWorkers   int          `json:"max_workers"`   // configured pool size
	CPUCount     int          `json:"cpu_count"`     // detected cores
}
