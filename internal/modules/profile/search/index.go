// Package search keeps the member directory mirrored in a Meilisearch index.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/sanitize"
)

const membersIndex = "members"

// MemberIndex is the search side of the member directory.
type MemberIndex interface {
	Upsert(ctx context.Context, user *entity.User) error
	Remove(ctx context.Context, userID uuid.UUID) error
	// Search returns matching user ids, best match first.
	Search(ctx context.Context, q string, limit int) ([]uuid.UUID, error)
}

type memberDoc struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	FullName        string   `json:"full_name"`
	FarmName        string   `json:"farm_name"`
	State           string   `json:"state"`
	County          string   `json:"county"`
	FarmType        string   `json:"farm_type"`
	CropTypes       []string `json:"crop_types"`
	ClimateControls []string `json:"climate_controls"`
	Bio             string   `json:"bio"`
}

type meiliMemberIndex struct {
	client meilisearch.ServiceManager
	log    *logger.Logger
}

func NewMeiliMemberIndex(client meilisearch.ServiceManager, log *logger.Logger) MemberIndex {
	idx := &meiliMemberIndex{client: client, log: log}
	idx.initIndex()
	return idx
}

func (m *meiliMemberIndex) initIndex() {
	filterable := []any{"state", "farm_type", "crop_types"}
	if _, err := m.client.Index(membersIndex).UpdateFilterableAttributes(&filterable); err != nil {
		m.log.Warn("failed to update members filterable attributes", "error", err)
	}

	searchable := []string{"full_name", "farm_name", "crop_types", "farm_type", "climate_controls", "county", "state", "username", "bio"}
	if _, err := m.client.Index(membersIndex).UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warn("failed to update members searchable attributes", "error", err)
	}
}

// Upsert indexes a directory-visible profile and removes a hidden one.
func (m *meiliMemberIndex) Upsert(ctx context.Context, user *entity.User) error {
	if user.Profile == nil || !user.Profile.DirectoryVisible {
		return m.Remove(ctx, user.ID)
	}

	doc := toDoc(user)
	task, err := m.client.Index(membersIndex).AddDocuments([]memberDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("index member: %w", err)
	}
	m.log.Debug("indexed member", "user_id", user.ID, "task_uid", task.TaskUID)
	return nil
}

func (m *meiliMemberIndex) Remove(_ context.Context, userID uuid.UUID) error {
	_, err := m.client.Index(membersIndex).DeleteDocument(userID.String())
	return err
}

func (m *meiliMemberIndex) Search(_ context.Context, q string, limit int) ([]uuid.UUID, error) {
	res, err := m.client.Index(membersIndex).Search(q, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, err
	}

	// Hits decode the same way whatever concrete hit type the client returns.
	raw, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, err
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		if id, err := uuid.Parse(h.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func toDoc(u *entity.User) memberDoc {
	p := u.Profile
	doc := memberDoc{
		ID:              u.ID.String(),
		Username:        u.Username,
		FullName:        p.FullName,
		State:           p.State,
		County:          p.County,
		FarmType:        p.FarmType,
		CropTypes:       append([]string{}, p.CropTypes...),
		ClimateControls: append([]string{}, p.ClimateControls...),
	}
	if p.FarmName != nil {
		doc.FarmName = *p.FarmName
	}
	if p.Bio != nil {
		doc.Bio = sanitize.Text(*p.Bio)
	}
	return doc
}

func strPtr(s string) *string {
	return &s
}
