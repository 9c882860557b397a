package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// ============================================================
// Journey state — implements port.JourneyStore
// ============================================================

// journeyRow stores the evaluated steps as a JSON column; only the manual
// backup toggle ever writes here, so the shape stays simple.
type journeyRow struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"profile_id"`
	Month     string          `json:"month"`
	Steps     json.RawMessage `json:"steps"`
}

// GetJourney returns the persisted journey for a profile-month, or nil.
func (c *Client) GetJourney(ctx context.Context, profileID, month string) (*domain.JourneyState, error) {
	path := fmt.Sprintf("journeys?profile_id=eq.%s&month=eq.%s&limit=1",
		url.QueryEscape(profileID), url.QueryEscape(month))
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, nil
	}

	var rows []journeyRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode journeys: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	state := domain.JourneyState{
		ID:        rows[0].ID,
		ProfileID: rows[0].ProfileID,
		Month:     rows[0].Month,
	}
	if len(rows[0].Steps) > 0 {
		if err := json.Unmarshal(rows[0].Steps, &state.Steps); err != nil {
			return nil, fmt.Errorf("decode journey steps: %w", err)
		}
	}
	return &state, nil
}

// PutJourney upserts the journey state for its profile-month.
func (c *Client) PutJourney(ctx context.Context, state domain.JourneyState) error {
	steps, err := json.Marshal(state.Steps)
	if err != nil {
		return fmt.Errorf("encode journey steps: %w", err)
	}
	row := journeyRow{
		ID:        state.ID,
		ProfileID: state.ProfileID,
		Month:     state.Month,
		Steps:     steps,
	}
	_, err = c.do(ctx, http.MethodPost, "journeys", row, "resolution=merge-duplicates,return=minimal")
	return err
}
