package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"survey-backend/config"
	"survey-backend/models"
	"survey-backend/submission"
)

// setupTestStore opens a fresh in-memory SQLite database with the full schema.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(config.Config{DBDriver: config.DriverSQLite, DatabaseURL: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(db)
}

func createTestSurvey(t *testing.T, s *Store, code string) *models.Survey {
	t.Helper()

	status := models.StatusOpen
	survey := &models.Survey{Code: code, Name: "Survey " + code, Status: &status}
	if err := s.DB().Create(survey).Error; err != nil {
		t.Fatalf("Failed to create test survey: %v", err)
	}
	return survey
}

func TestMigrate_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	if err := Migrate(s.DB()); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if !s.DB().Migrator().HasIndex(&models.Response{}, "idx_responses_survey_employee") {
		t.Fatal("unique (survey_id, employee_id) index missing")
	}
}

func TestStore_FindSurvey(t *testing.T) {
	s := setupTestStore(t)
	survey := createTestSurvey(t, s, "2026-02")
	ctx := context.Background()

	byCode, err := s.FindSurvey(ctx, "2026-02")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if byCode.ID != survey.ID {
		t.Errorf("find by code returned %s, want %s", byCode.ID, survey.ID)
	}

	byID, err := s.FindSurvey(ctx, survey.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Code != "2026-02" || byID.Status == nil || *byID.Status != models.StatusOpen {
		t.Errorf("unexpected survey %+v", byID)
	}

	_, err = s.FindSurvey(ctx, "missing")
	if !errors.Is(err, submission.ErrSurveyNotFound) {
		t.Errorf("expected ErrSurveyNotFound, got %v", err)
	}
}

func TestStore_InsertResponseHeader_Duplicate(t *testing.T) {
	s := setupTestStore(t)
	survey := createTestSurvey(t, s, "2026-02")
	ctx := context.Background()

	first := &models.Response{SurveyID: survey.ID, EmployeeID: "A00123", AnsweredAt: time.Now().UTC()}
	if err := s.InsertResponseHeader(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	second := &models.Response{SurveyID: survey.ID, EmployeeID: "A00123", AnsweredAt: time.Now().UTC()}
	err := s.InsertResponseHeader(ctx, second)
	if !errors.Is(err, submission.ErrDuplicateResponse) {
		t.Fatalf("expected ErrDuplicateResponse, got %v", err)
	}

	// Another respondent on the same survey is fine.
	third := &models.Response{SurveyID: survey.ID, EmployeeID: "A00124", AnsweredAt: time.Now().UTC()}
	if err := s.InsertResponseHeader(ctx, third); err != nil {
		t.Fatalf("other respondent: %v", err)
	}
}

func TestStore_InsertAnswerItems(t *testing.T) {
	s := setupTestStore(t)
	survey := createTestSurvey(t, s, "2026-02")
	ctx := context.Background()

	header := &models.Response{SurveyID: survey.ID, EmployeeID: "A00123", AnsweredAt: time.Now().UTC()}
	if err := s.InsertResponseHeader(ctx, header); err != nil {
		t.Fatal(err)
	}

	items := []models.ResponseItem{
		{ResponseID: header.ID, QuestionCode: "F-1", RawScore: 2, ScoredScore: 5},
		{ResponseID: header.ID, QuestionCode: "A-1", RawScore: 5, ScoredScore: 5},
	}
	if err := s.InsertAnswerItems(ctx, items); err != nil {
		t.Fatalf("insert items: %v", err)
	}

	var stored []models.ResponseItem
	if err := s.DB().Where("response_id = ?", header.ID).Order("id").Find(&stored).Error; err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[0].ScoredScore != 5 || stored[1].QuestionCode != "A-1" {
		t.Fatalf("unexpected stored items %+v", stored)
	}

	bad := []models.ResponseItem{{ResponseID: header.ID, QuestionCode: "B-1", RawScore: 7, ScoredScore: 7}}
	if err := s.InsertAnswerItems(ctx, bad); err == nil {
		t.Fatal("expected check constraint to reject raw_score 7")
	}

	if err := s.InsertAnswerItems(ctx, nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestStore_WithTransaction_RollsBack(t *testing.T) {
	s := setupTestStore(t)
	survey := createTestSurvey(t, s, "2026-02")
	ctx := context.Background()

	boom := errors.New("items failed")
	err := s.WithTransaction(ctx, func(tx submission.Repository) error {
		h := &models.Response{SurveyID: survey.ID, EmployeeID: "A00123", AnsweredAt: time.Now().UTC()}
		if err := tx.InsertResponseHeader(ctx, h); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	var count int64
	s.DB().Model(&models.Response{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected rollback to leave 0 headers, got %d", count)
	}
}

func TestStore_ActiveQuestionCodes(t *testing.T) {
	s := setupTestStore(t)
	questions := []models.Question{
		{QuestionCode: "F-1", Scale: "F", QuestionText: "f1", DisplayOrder: 2, IsActive: true},
		{QuestionCode: "A-1", Scale: "A", QuestionText: "a1", DisplayOrder: 1, IsActive: true},
		{QuestionCode: "A-2", Scale: "A", QuestionText: "a2", DisplayOrder: 3, IsActive: false},
	}
	if err := s.DB().Create(&questions).Error; err != nil {
		t.Fatal(err)
	}

	codes, err := s.ActiveQuestionCodes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 2 || codes[0] != "A-1" || codes[1] != "F-1" {
		t.Fatalf("codes = %v, want [A-1 F-1]", codes)
	}
}

func TestStore_IdempotencyKeys(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &models.IdempotencyKey{Key: "k1", RequestHash: "h1", Method: "POST", Path: "/x", ExpiresAt: now.Add(time.Hour)}
	got, created, err := s.ClaimIdempotencyKey(ctx, rec, time.Minute)
	if err != nil || !created || !got.Pending() {
		t.Fatalf("first claim: created=%v err=%v", created, err)
	}

	again, created, err := s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", RequestHash: "h1", ExpiresAt: now.Add(time.Hour)}, time.Minute)
	if err != nil || created {
		t.Fatalf("second claim should find existing: created=%v err=%v", created, err)
	}
	if !again.Pending() {
		t.Fatal("existing key should still be pending")
	}

	if err := s.CompleteIdempotencyKey(ctx, "k1", 200, []byte(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	done, _, err := s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", ExpiresAt: now.Add(time.Hour)}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if done.ResponseStatus != 200 || string(done.ResponseBody) != `{"ok":true}` {
		t.Fatalf("unexpected completed record %+v", done)
	}

	if err := s.ReleaseIdempotencyKey(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	_, created, err = s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", ExpiresAt: now.Add(time.Hour)}, time.Minute)
	if err != nil || !created {
		t.Fatalf("claim after release: created=%v err=%v", created, err)
	}
}

func TestStore_IdempotencyKeyExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	if _, _, err := s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "old", ExpiresAt: past}, time.Minute); err != nil {
		t.Fatal(err)
	}
	_, created, err := s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "old", RequestHash: "new", ExpiresAt: time.Now().UTC().Add(time.Hour)}, time.Minute)
	if err != nil || !created {
		t.Fatalf("expired key should be reclaimable: created=%v err=%v", created, err)
	}
}

func TestStore_IdempotencyKeyAbandonedClaim(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	stale := &models.IdempotencyKey{Key: "crashed", RequestHash: "h1", ExpiresAt: expires}
	if err := s.DB().Create(stale).Error; err != nil {
		t.Fatal(err)
	}
	// Backdate the claim past the lease.
	if err := s.DB().Model(stale).Update("created_at", time.Now().UTC().Add(-5*time.Minute)).Error; err != nil {
		t.Fatal(err)
	}

	rec, created, err := s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "crashed", RequestHash: "h1", ExpiresAt: expires}, 30*time.Second)
	if err != nil || !created || !rec.Pending() {
		t.Fatalf("stale pending claim should be reclaimable: created=%v err=%v", created, err)
	}

	// A fresh pending claim is still honoured.
	_, created, err = s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "crashed", RequestHash: "h1", ExpiresAt: expires}, 30*time.Second)
	if err != nil || created {
		t.Fatalf("fresh pending claim must not be taken over: created=%v err=%v", created, err)
	}

	// Completed records are never reclaimed, however old.
	if err := s.CompleteIdempotencyKey(ctx, "crashed", 200, []byte(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	s.DB().Model(&models.IdempotencyKey{}).Where(&models.IdempotencyKey{Key: "crashed"}).Update("created_at", time.Now().UTC().Add(-time.Hour))
	done, created, err := s.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{Key: "crashed", ExpiresAt: expires}, 30*time.Second)
	if err != nil || created || done.ResponseStatus != 200 {
		t.Fatalf("completed record should be returned: created=%v err=%v rec=%+v", created, err, done)
	}
}
