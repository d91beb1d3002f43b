package models

// UpdateStatusData is the coordinator's externally visible state.
type UpdateStatusData struct {
	Status           string `json:"status" example:"update_available" doc:"Current update status"`
	CurrentVersion   string `json:"current_version" example:"2.4.0" doc:"Version of the running build"`
	OnlineVersion    string `json:"online_version,omitempty" example:"v.2.5.0" doc:"Latest tag reported by the release feed"`
	IsDowngrade      bool   `json:"is_downgrade" example:"false" doc:"Whether the online release is older than the running build"`
	IsError          bool   `json:"is_error" example:"false" doc:"Whether the current status is a failure"`
	ShowUpdateButton bool   `json:"show_update_button" example:"true" doc:"Whether the UI should render the update button"`
}

// UpdateStatusResponse wraps UpdateStatusData for API responses.
type UpdateStatusResponse struct {
	Body UpdateStatusData
}

// UpdateCheckResponse acknowledges a started check.
type UpdateCheckResponse struct {
	Body struct {
		Message string `json:"message" example:"Update check started" doc:"Status message"`
	}
}

// UpdateInstallResponse acknowledges a started install.
type UpdateInstallResponse struct {
	Body struct {
		Message string `json:"message" example:"Update install started" doc:"Status message"`
	}
}
