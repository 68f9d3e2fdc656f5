package usecases

import (
	"github.com/sophialabs/mockdeck/internal/domain/sequence"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

// ResetSequencesUseCase rewinds sequence cursors.
type ResetSequencesUseCase struct {
	tracker *sequence.Tracker
	logger  ports.Logger
}

// NewResetSequencesUseCase creates a new use case.
func NewResetSequencesUseCase(tracker *sequence.Tracker, logger ports.Logger) *ResetSequencesUseCase {
	return &ResetSequencesUseCase{tracker: tracker, logger: logger}
}

// Execute resets the cursor of id, or every cursor when id is empty.
func (uc *ResetSequencesUseCase) Execute(id string) {
	if id == "" {
		uc.tracker.ResetAll()
		uc.logger.Info("all sequences reset")
		return
	}
	uc.tracker.Reset(id)
	uc.logger.Info("sequence reset", "id", id)
}

// Cursors returns the next step index of every sequence that has been served.
func (uc *ResetSequencesUseCase) Cursors() map[string]int {
	return uc.tracker.Snapshot()
}
