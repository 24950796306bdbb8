package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// ErrInvalidTarget is returned when an alert references a team or user
// that does not exist.
var ErrInvalidTarget = errors.New("invalid alert target")

// ResolveRecipients expands an alert's visibility and targets into the
// set of active user IDs that should receive it. Targets that do not
// exist produce ErrInvalidTarget; inactive users are silently excluded.
func ResolveRecipients(ctx context.Context, db *sqlite.DB, alert *models.Alert) ([]models.UserID, error) {
	switch alert.Visibility {
	case models.AlertVisibilityOrganization:
		ids, err := db.ListActiveUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization recipients: %w", err)
		}
		return ids, nil

	case models.AlertVisibilityTeam:
		teams, err := db.ListTeamsByIDs(ctx, alert.TargetTeamIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve target teams: %w", err)
		}
		if missing := missingTeamIDs(alert.TargetTeamIDs, teams); len(missing) > 0 {
			return nil, fmt.Errorf("%w: team %d not found", ErrInvalidTarget, missing[0])
		}
		ids, err := db.ListActiveUserIDsByTeams(ctx, alert.TargetTeamIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve team recipients: %w", err)
		}
		return dedupeUserIDs(ids), nil

	case models.AlertVisibilityUser:
		users, err := db.ListUsersByIDs(ctx, alert.TargetUserIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve target users: %w", err)
		}
		if missing := missingUserIDs(alert.TargetUserIDs, users); len(missing) > 0 {
			return nil, fmt.Errorf("%w: user %d not found", ErrInvalidTarget, missing[0])
		}
		var ids []models.UserID
		for _, u := range users {
			if u.IsActive {
				ids = append(ids, u.ID)
			}
		}
		return dedupeUserIDs(ids), nil

	default:
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidTarget, alert.Visibility)
	}
}

func missingTeamIDs(wanted []models.TeamID, found []*models.Team) []models.TeamID {
	present := make(map[models.TeamID]struct{}, len(found))
	for _, t := range found {
		present[t.ID] = struct{}{}
	}
	var missing []models.TeamID
	for _, id := range wanted {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func missingUserIDs(wanted []models.UserID, found []*models.User) []models.UserID {
	present := make(map[models.UserID]struct{}, len(found))
	for _, u := range found {
		present[u.ID] = struct{}{}
	}
	var missing []models.UserID
	for _, id := range wanted {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func dedupeUserIDs(ids []models.UserID) []models.UserID {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[models.UserID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
