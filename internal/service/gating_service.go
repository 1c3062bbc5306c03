package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// GateStatus is derived, never stored. Recomputing it from the ledger on
// every read keeps a single source of truth.
type GateStatus string

const (
	GatePending       GateStatus = "pending"
	GateInProgress    GateStatus = "in_progress"
	GatePassed        GateStatus = "passed"
	GateRetryRequired GateStatus = "retry_required"
)

type GatingService struct {
	Attempts *repository.AttemptRepository
	Tags     *repository.AnchorTagRepository
}

func NewGatingService(attempts *repository.AttemptRepository, tags *repository.AnchorTagRepository) *GatingService {
	return &GatingService{Attempts: attempts, Tags: tags}
}

// DeriveGateStatus maps the most recent attempt to a gate status. A failed
// latest attempt is always re-attemptable; there is no lock-out cap.
func DeriveGateStatus(latest *model.AnchorAttempt) GateStatus {
	if latest == nil {
		return GatePending
	}
	switch latest.Status {
	case model.AttemptInProgress:
		return GateInProgress
	case model.AttemptCompleted:
		return GatePassed
	case model.AttemptFailed:
		return GateRetryRequired
	}
	return GatePending
}

func (s *GatingService) TagStatus(studentID, tagID uint) (GateStatus, error) {
	if _, err := s.Tags.FindByID(tagID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrTagNotFound
		}
		return "", err
	}

	latest, err := s.Attempts.LatestByTags(studentID, []uint{tagID})
	if err != nil {
		return "", err
	}
	return DeriveGateStatus(latest[tagID]), nil
}

type TagProgress struct {
	TagID       uint       `json:"tagId"`
	IsMandatory bool       `json:"isMandatory"`
	Status      GateStatus `json:"status"`
}

type UnitProgress struct {
	ContentType   model.ContentType `json:"contentType"`
	ContentRef    uint              `json:"contentRef"`
	Completed     bool              `json:"completed"`
	MandatoryLeft int               `json:"mandatoryLeft"`
	Tags          []TagProgress     `json:"tags"`
}

// UnitProgress reports per-tag gate statuses for one content unit. The unit
// is complete when every mandatory tag is passed; optional tags are tracked
// but never block.
func (s *GatingService) UnitProgress(studentID uint, contentType model.ContentType, contentRef uint) (*UnitProgress, error) {
	tags, err := s.Tags.FindByContent(contentType, contentRef)
	if err != nil {
		return nil, err
	}

	tagIDs := make([]uint, len(tags))
	for i, t := range tags {
		tagIDs[i] = t.ID
	}

	latest, err := s.Attempts.LatestByTags(studentID, tagIDs)
	if err != nil {
		return nil, err
	}

	progress := &UnitProgress{
		ContentType: contentType,
		ContentRef:  contentRef,
		Completed:   true,
		Tags:        make([]TagProgress, len(tags)),
	}

	for i, t := range tags {
		status := DeriveGateStatus(latest[t.ID])
		progress.Tags[i] = TagProgress{
			TagID:       t.ID,
			IsMandatory: t.IsMandatory,
			Status:      status,
		}
		if t.IsMandatory && status != GatePassed {
			progress.Completed = false
			progress.MandatoryLeft++
		}
	}

	return progress, nil
}
