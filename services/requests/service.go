// Package requests drives the "request this title" flow: validation, the
// upstream submission and the per-profile "already requested" marker.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"movieverse/models"
)

// ErrInvalidPayload wraps validation failures.
var ErrInvalidPayload = errors.New("invalid request payload")

// Submitter forwards a request to the catalog.
type Submitter interface {
	SubmitRequest(ctx context.Context, payload models.RequestPayload) error
}

// MarkerStore persists markers.
type MarkerStore interface {
	Mark(ctx context.Context, m *models.RequestedMarker) error
	Exists(ctx context.Context, profileID, itemID string) (bool, error)
	ListByProfile(ctx context.Context, profileID string) ([]models.RequestedMarker, error)
}

type Service struct {
	submitter Submitter
	markers   MarkerStore
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(submitter Submitter, markers MarkerStore) *Service {
	return &Service{
		submitter: submitter,
		markers:   markers,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// BuildPayload derives the submission body from a cached item payload. The
// table is inferred when the payload carries no explicit hint.
func BuildPayload(raw []byte, table string) (models.RequestPayload, error) {
	if table == "" {
		table = models.InferTable(raw)
	}
	kind, ok := models.KindForTable(table)
	if !ok {
		return models.RequestPayload{}, fmt.Errorf("%w: unknown table %q", ErrInvalidPayload, table)
	}
	item, err := models.Normalize(kind, raw)
	if err != nil {
		return models.RequestPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return models.RequestPayload{
		TypeID: json.Number(item.ID),
		Name:   item.Title,
		Type:   table,
	}, nil
}

// Send validates payload, submits it and records a marker for profile. The
// marker is advisory, so a failure to write it is only logged.
func (s *Service) Send(ctx context.Context, profileID string, payload models.RequestPayload) error {
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := s.submitter.SubmitRequest(ctx, payload); err != nil {
		return err
	}

	if profileID == "" {
		return nil
	}
	marker := &models.RequestedMarker{
		ProfileID:   profileID,
		ItemID:      payload.TypeID.String(),
		Table:       payload.Type,
		RequestedAt: s.now().UTC(),
	}
	if err := s.markers.Mark(ctx, marker); err != nil {
		log.Printf("[requests] marker write for %s failed: %v", marker.ItemID, err)
	}
	return nil
}

// Requested reports whether profile already requested itemID. Lookup failures
// read as "not requested".
func (s *Service) Requested(ctx context.Context, profileID, itemID string) bool {
	if profileID == "" || itemID == "" {
		return false
	}
	ok, err := s.markers.Exists(ctx, profileID, itemID)
	if err != nil {
		log.Printf("[requests] marker lookup for %s failed: %v", itemID, err)
		return false
	}
	return ok
}

// History lists everything profile has requested.
func (s *Service) History(ctx context.Context, profileID string) ([]models.RequestedMarker, error) {
	if profileID == "" {
		return nil, nil
	}
	return s.markers.ListByProfile(ctx, profileID)
}
