package protocol

import "time"

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Status            string           `json:"status"`
	Uptime            string           `json:"uptime"`
	NATSRunning       bool             `json:"nats_running"`
	StartedAt         time.Time        `json:"started_at"`
	CommandsGenerated int64            `json:"commands_generated"`
	ByArch            map[string]int64 `json:"by_arch"`
}

// ArchsResponse is returned by GET /api/v1/archs.
type ArchsResponse struct {
	Archs   []string `json:"archs"`
	Default string   `json:"default"`
}

// InstallCommandRequest is the body of POST /api/v1/install-command.
// An empty Arch selects the default architecture. Source attributes the
// generation to a client surface and defaults to SourceAPI.
type InstallCommandRequest struct {
	Dest       string `json:"dest"`
	Arch       string `json:"arch"`
	EscapeDest bool   `json:"escape_dest"`
	Source     string `json:"source,omitempty"`
}

// InstallCommandResponse is returned by POST /api/v1/install-command.
type InstallCommandResponse struct {
	Command       string `json:"command"`
	Arch          string `json:"arch"`
	DownloadURL   string `json:"download_url"`
	ArchSupported bool   `json:"arch_supported"`
	UnsafeDest    bool   `json:"unsafe_dest"`
	Warning       string `json:"warning,omitempty"`
}
