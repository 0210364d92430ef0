package dto

type SetConfigRequest struct {
	Value string `json:"value" validate:"required,max=10000"`
	Type  string `json:"type" validate:"omitempty,oneof=string bool int json"`
}

type VersionCheckResponse struct {
	UpdateRequired bool   `json:"updateRequired"`
	ForceUpdate    bool   `json:"forceUpdate"`
	Message        string `json:"message,omitempty"`
	MinVersion     string `json:"minVersion"`
	CurrentVersion string `json:"currentVersion"`
	Maintenance    bool   `json:"maintenanceMode"`
}
