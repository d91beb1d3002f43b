package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/uriiusero/chatterino7/internal/api/models"
	"github.com/uriiusero/chatterino7/internal/updater"
)

// registerUpdateRoutes registers all update-related endpoints.
func (s *Server) registerUpdateRoutes() {
	if s.coordinator == nil {
		return
	}

	if reason := s.coordinator.DisabledReason(); reason != "" {
		s.registerDisabledUpdateRoutes(reason)
		return
	}

	// Get update status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Get Update Status",
		Description: "Get the coordinator's current status and the latest known release",
		Tags:        []string{"update"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateStatusResponse, error) {
		status := s.coordinator.Status()
		return &models.UpdateStatusResponse{
			Body: models.UpdateStatusData{
				Status:           string(status),
				CurrentVersion:   s.coordinator.CurrentVersion(),
				OnlineVersion:    s.coordinator.OnlineVersion(),
				IsDowngrade:      s.coordinator.IsDowngrade(),
				IsError:          status.IsError(),
				ShowUpdateButton: status.ShouldShowUpdateButton(),
			},
		}, nil
	})

	// Start an update check
	huma.Register(s.api, huma.Operation{
		OperationID: "check-updates",
		Method:      http.MethodPost,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Start an asynchronous release-feed check. The result arrives as a status transition on the event stream.",
		Tags:        []string{"update"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateCheckResponse, error) {
		s.coordinator.CheckForUpdates(context.WithoutCancel(ctx))
		resp := &models.UpdateCheckResponse{}
		resp.Body.Message = "Update check started"
		return resp, nil
	})

	// Start installing the available update
	huma.Register(s.api, huma.Operation{
		OperationID: "install-update",
		Method:      http.MethodPost,
		Path:        "/api/update/install",
		Summary:     "Install Update",
		Description: "Download and launch the available update. On platforms with automatic installs the client exits once the installer takes over.",
		Tags:        []string{"update"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateInstallResponse, error) {
		if err := s.coordinator.InstallUpdates(context.WithoutCancel(ctx)); err != nil {
			return nil, mapUpdateError(err)
		}
		resp := &models.UpdateInstallResponse{}
		resp.Body.Message = "Update install started"
		return resp, nil
	})
}

// registerDisabledUpdateRoutes registers endpoints that return 503 when
// update checking is disabled for this build or environment.
func (s *Server) registerDisabledUpdateRoutes(reason string) {
	disabledHandler := func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error503ServiceUnavailable("Updates disabled: " + reason)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Get Update Status",
		Description: "Get the current update status (disabled)",
		Tags:        []string{"update"},
		Errors:      []int{503},
		Security:    withAuth(),
	}, disabledHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "check-updates",
		Method:      http.MethodPost,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Check for updates (disabled)",
		Tags:        []string{"update"},
		Errors:      []int{503},
		Security:    withAuth(),
	}, disabledHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "install-update",
		Method:      http.MethodPost,
		Path:        "/api/update/install",
		Summary:     "Install Update",
		Description: "Install update (disabled)",
		Tags:        []string{"update"},
		Errors:      []int{503},
		Security:    withAuth(),
	}, disabledHandler)
}

// mapUpdateError converts updater errors to Huma HTTP errors.
func mapUpdateError(err error) error {
	var updateErr *updater.Error
	if errors.As(err, &updateErr) {
		switch updateErr.Code {
		case updater.ErrCodeInvalidState:
			return huma.Error409Conflict(updateErr.Message)
		case updater.ErrCodeDisabled:
			return huma.Error503ServiceUnavailable(updateErr.Message)
		default:
			return huma.Error500InternalServerError(updateErr.Message)
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
