package usecase

import (
	"fmt"
	"strings"

	"warden/internal/domain"
)

// Notification payload construction for the activation lifecycle. The
// records produced here are handed to a Notifier; rendering and delivery
// happen outside the core.

func RequestCreatedNotification[T domain.PrivilegeID](request domain.ActivationRequest[T]) domain.Notification {
	return domain.Notification{
		To:      request.Reviewers.Sorted(),
		CC:      []domain.Principal{request.RequestingUser},
		Subject: fmt.Sprintf("%s requests access to %s", request.RequestingUser.Value, request.Privilege),
		Properties: map[string]string{
			"event":         "request-created",
			"activation_id": request.ID.String(),
			"requester":     request.RequestingUser.String(),
			"privilege":     request.Privilege.String(),
			"justification": request.Justification,
			"start_time":    request.StartTime.Format(timePropertyLayout),
			"end_time":      request.EndTime.Format(timePropertyLayout),
			"reviewers":     strings.Join(request.Reviewers.Strings(), ", "),
		},
	}
}

func RequestApprovedNotification[T domain.PrivilegeID](request domain.ActivationRequest[T], approver domain.Principal) domain.Notification {
	return domain.Notification{
		To:      []domain.Principal{request.RequestingUser},
		CC:      request.Reviewers.Sorted(),
		Subject: fmt.Sprintf("access to %s approved by %s", request.Privilege, approver.Value),
		Properties: map[string]string{
			"event":         "request-approved",
			"activation_id": request.ID.String(),
			"requester":     request.RequestingUser.String(),
			"approver":      approver.String(),
			"privilege":     request.Privilege.String(),
			"justification": request.Justification,
			"start_time":    request.StartTime.Format(timePropertyLayout),
			"end_time":      request.EndTime.Format(timePropertyLayout),
		},
	}
}

func RequestSelfApprovedNotification[T domain.PrivilegeID](request domain.ActivationRequest[T]) domain.Notification {
	return domain.Notification{
		To:      []domain.Principal{request.RequestingUser},
		Subject: fmt.Sprintf("access to %s activated", request.Privilege),
		Properties: map[string]string{
			"event":         "request-self-approved",
			"activation_id": request.ID.String(),
			"requester":     request.RequestingUser.String(),
			"privilege":     request.Privilege.String(),
			"justification": request.Justification,
			"start_time":    request.StartTime.Format(timePropertyLayout),
			"end_time":      request.EndTime.Format(timePropertyLayout),
		},
	}
}

const timePropertyLayout = "2006-01-02 15:04:05 MST"
