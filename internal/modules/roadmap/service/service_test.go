package roadmap

import (
	"context"
	"errors"
	"testing"

	"greenhouse.org/growersplatform/internal/entity"
	roadmapDto "greenhouse.org/growersplatform/internal/modules/roadmap/dto"
	"greenhouse.org/growersplatform/internal/modules/roadmap/repository"
	"greenhouse.org/growersplatform/internal/modules/roadmap/scoring"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/apperror"
	"gorm.io/gorm"
)

func newService(t *testing.T) (RoadmapService, *gorm.DB) {
	t.Helper()
	db := testutil.SQLite(t)
	return NewRoadmapService(repository.NewRoadmapRepository(db)), db
}

func input() roadmapDto.SubmitInput {
	return roadmapDto.SubmitInput{Responses: scoring.Responses{
		"cc_monitoring": "5",
		"pm_scouting":   "1",
		"pm_biocontrol": "no",
		"fi_records":    "3",
	}}
}

func TestSubmit_StoresProfileAndRecommendations(t *testing.T) {
	svc, db := newService(t)
	u := testutil.SeedUser(t, db, "grower", entity.RoleMember)
	ctx := context.Background()

	res, err := svc.Submit(ctx, u.ID, input())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := scoring.CalculateFarmProfile(input().Responses)
	if res.Profile.OverallScore != want.OverallScore {
		t.Errorf("overall = %d, want %d", res.Profile.OverallScore, want.OverallScore)
	}
	if len(res.Profile.CategoryScores) != len(want.CategoryScores) {
		t.Errorf("category scores = %+v", res.Profile.CategoryScores)
	}
	recs := scoring.GenerateRecommendations(want, input().Responses)
	if len(res.Recommendations) != len(recs) {
		t.Fatalf("recommendations = %d, want %d", len(res.Recommendations), len(recs))
	}
	for i := range recs {
		if res.Recommendations[i].QuestionID != recs[i].QuestionID {
			t.Errorf("recommendation %d = %s, want %s", i, res.Recommendations[i].QuestionID, recs[i].QuestionID)
		}
	}

	latest, err := svc.Latest(ctx, u.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Assessment.ID != res.Assessment.ID {
		t.Errorf("latest = %s, want %s", latest.Assessment.ID, res.Assessment.ID)
	}
	if latest.Assessment.Responses["cc_monitoring"] != "5" {
		t.Errorf("stored responses = %v", latest.Assessment.Responses)
	}
}

func TestSubmit_RejectsUnknownQuestion(t *testing.T) {
	svc, db := newService(t)
	u := testutil.SeedUser(t, db, "grower", entity.RoleMember)

	_, err := svc.Submit(context.Background(), u.ID, roadmapDto.SubmitInput{Responses: scoring.Responses{"nope": "1"}})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	var n int64
	db.Model(&entity.FarmAssessment{}).Count(&n)
	if n != 0 {
		t.Errorf("assessments stored = %d", n)
	}
}

func TestLatest_NoneSubmitted(t *testing.T) {
	svc, db := newService(t)
	u := testutil.SeedUser(t, db, "grower", entity.RoleMember)

	if _, err := svc.Latest(context.Background(), u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRecompute_RestoresDerivedData(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, "grower", entity.RoleMember)
	other := testutil.SeedUser(t, db, "neighbor", entity.RoleMember)
	ctx := context.Background()

	res, err := svc.Submit(ctx, owner.ID, input())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// simulate stale derived rows
	if err := db.Model(&entity.FarmProfile{}).Where("id = ?", res.Profile.ID).Update("overall_score", 0).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Where("profile_id = ?", res.Profile.ID).Delete(&entity.FarmRecommendation{}).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Recompute(ctx, other.ID, false, res.Assessment.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-owner recompute err = %v, want forbidden", err)
	}

	again, err := svc.Recompute(ctx, owner.ID, false, res.Assessment.ID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if again.Profile.ID != res.Profile.ID {
		t.Errorf("profile id changed: %s -> %s", res.Profile.ID, again.Profile.ID)
	}
	if again.Profile.OverallScore != res.Profile.OverallScore {
		t.Errorf("overall = %d, want %d", again.Profile.OverallScore, res.Profile.OverallScore)
	}
	if len(again.Recommendations) != len(res.Recommendations) {
		t.Errorf("recommendations = %d, want %d", len(again.Recommendations), len(res.Recommendations))
	}

	var n int64
	db.Model(&entity.FarmRecommendation{}).Where("profile_id = ?", res.Profile.ID).Count(&n)
	if int(n) != len(res.Recommendations) {
		t.Errorf("stored recommendations = %d, want %d", n, len(res.Recommendations))
	}

	if _, err := svc.Get(ctx, other.ID, true, res.Assessment.ID); err != nil {
		t.Errorf("admin Get: %v", err)
	}
}
