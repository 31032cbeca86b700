package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/StanNowak/Surveys/internal/platform/id"
	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

// SaveResponse archives one submitted response payload.
func (s *Store) SaveResponse(ctx context.Context, response storage.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	participantID := strings.TrimSpace(response.ParticipantID)
	surveyID := strings.TrimSpace(response.SurveyID)
	if participantID == "" {
		return fmt.Errorf("participant id is required")
	}
	if surveyID == "" {
		return fmt.Errorf("survey id is required")
	}
	if len(response.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	rowID := strings.TrimSpace(response.ID)
	if rowID == "" {
		generated, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate response id: %w", err)
		}
		rowID = generated
	}
	receivedAt := response.ReceivedAt.UTC()
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO responses (
		   id, participant_id, survey_id, payload,
		   panel_member, bank_version, config_version, received_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID,
		participantID,
		surveyID,
		string(response.Payload),
		response.PanelMember,
		response.BankVersion,
		response.ConfigVersion,
		toMillis(receivedAt),
	)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
