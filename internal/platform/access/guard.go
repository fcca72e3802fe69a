package access

import (
	"strings"

	"github.com/leafit/leafit-backend/internal/platform/apperr"
)

// RequireOwner permits a mutation only when actorID owns the record.
// Treatment application and rating never go through this guard.
func RequireOwner(ownerID, actorID string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperr.Unauthenticated("Authentication required")
	}
	if ownerID != actorID {
		return apperr.Forbidden("Unauthorized")
	}
	return nil
}
