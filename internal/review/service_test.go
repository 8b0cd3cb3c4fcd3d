package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/regulations"
	"github.com/joseph-ayodele/fineprint/internal/repository"
	"github.com/joseph-ayodele/fineprint/internal/storage"
)

func seeded(t *testing.T) (*Service, repository.RegulationRepository) {
	t.Helper()
	store := repository.NewMemoryStore()
	page := 2
	reg := &entity.Regulation{
		ID:     "reg-1",
		Title:  "GDPR",
		Status: constants.RegulationStatusPending,
		Versions: []entity.Version{
			{ID: "v1", Label: "2016", Changes: []entity.ChangeRecord{}},
			{ID: "v2", Label: "2018", BaseVersionID: "v1", Changes: []entity.ChangeRecord{{
				ID:             "change-1",
				Summary:        "Retention extended",
				Analysis:       "Five to seven years.",
				Change:         "5 -> 7",
				BeforeQuote:    "5 years",
				AfterQuote:     "7 years",
				BeforePage:     &page,
				AfterPage:      &page,
				Type:           constants.Modification,
				Classification: constants.PersonalDataHandling,
				Confidence:     0.9,
				Status:         constants.ChangeStatusPending,
				Comments:       []entity.Comment{},
			}}},
		},
		VersionSeq:  2,
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}
	if err := store.Regulations.Create(context.Background(), reg); err != nil {
		t.Fatal(err)
	}
	regs := regulations.NewService(store.Regulations, storage.NewMemory(), nil, nil, nil, regulations.Options{}, nil)
	return NewService(regs, nil, nil), store.Regulations
}

func strp(s string) *string { return &s }

func TestSetChangeStatus(t *testing.T) {
	svc, repo := seeded(t)
	ctx := context.Background()

	c, err := svc.SetChangeStatus(ctx, "reg-1", "v2", "change-1", "not-relevant")
	if err != nil {
		t.Fatalf("SetChangeStatus: %v", err)
	}
	if c.Status != constants.ChangeStatusNotRelevant {
		t.Errorf("status = %s", c.Status)
	}
	reg, _ := repo.Get(ctx, "reg-1")
	if reg.Versions[1].Changes[0].Status != constants.ChangeStatusNotRelevant {
		t.Error("status not persisted")
	}
	if _, err := svc.SetChangeStatus(ctx, "reg-1", "v2", "change-1", "maybe"); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("bad status err = %v", err)
	}
}

func TestEditAlwaysResetsStatus(t *testing.T) {
	svc, repo := seeded(t)
	ctx := context.Background()

	for _, start := range []string{"relevant", "not-relevant", "pending"} {
		if _, err := svc.SetChangeStatus(ctx, "reg-1", "v2", "change-1", start); err != nil {
			t.Fatal(err)
		}
		c, err := svc.EditChange(ctx, "reg-1", "v2", "change-1", ChangeEdit{})
		if err != nil {
			t.Fatalf("empty edit: %v", err)
		}
		if c.Status != constants.ChangeStatusPending {
			t.Errorf("from %s: status after empty edit = %s", start, c.Status)
		}
	}

	c, err := svc.EditChange(ctx, "reg-1", "v2", "change-1", ChangeEdit{
		Summary:        strp("Retention period doubled"),
		Classification: strp("Cloud Usage"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Summary != "Retention period doubled" || c.Classification != constants.CloudUsage {
		t.Errorf("edited = %+v", c)
	}
	if c.Analysis != "Five to seven years." || c.AfterQuote != "7 years" {
		t.Error("unspecified fields changed")
	}
	reg, _ := repo.Get(ctx, "reg-1")
	if reg.Versions[1].Changes[0].Summary != "Retention period doubled" {
		t.Error("edit not persisted")
	}

	if _, err := svc.EditChange(ctx, "reg-1", "v2", "change-1", ChangeEdit{Classification: strp("astrology")}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("bad classification err = %v", err)
	}
}

func TestCommentThreading(t *testing.T) {
	svc, repo := seeded(t)
	ctx := context.Background()

	c1, err := svc.AddChangeComment(ctx, "reg-1", "v2", "change-1", "ana", "looks fine")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := svc.AddChangeComment(ctx, "reg-1", "v2", "change-1", "ben", "needs legal review")
	if err != nil {
		t.Fatal(err)
	}
	if c1.ID == c2.ID || c1.ID != "comment-1" || c2.ID != "comment-2" {
		t.Errorf("ids = %s, %s", c1.ID, c2.ID)
	}
	reg, _ := repo.Get(ctx, "reg-1")
	got := reg.Versions[1].Changes[0].Comments
	if len(got) != 2 || got[0].Text != "looks fine" || got[1].Text != "needs legal review" {
		t.Errorf("thread = %+v", got)
	}
	if _, err := svc.AddChangeComment(ctx, "reg-1", "v2", "change-1", "ana", "   "); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("blank comment err = %v", err)
	}
}

func TestNotFoundNamesIdentifier(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	cases := []struct {
		reg, version, change, kind string
	}{
		{"nope", "v2", "change-1", "regulation"},
		{"reg-1", "v9", "change-1", "version"},
		{"reg-1", "v1", "change-1", "change"},
	}
	for _, tc := range cases {
		ops := map[string]error{}
		_, ops["status"] = svc.SetChangeStatus(ctx, tc.reg, tc.version, tc.change, "relevant")
		_, ops["edit"] = svc.EditChange(ctx, tc.reg, tc.version, tc.change, ChangeEdit{})
		_, ops["comment"] = svc.AddChangeComment(ctx, tc.reg, tc.version, tc.change, "ana", "hi")
		for op, err := range ops {
			var nf *common.NotFoundError
			if !errors.As(err, &nf) || nf.Kind != tc.kind {
				t.Errorf("%s(%s/%s/%s) err = %v, want %s not found", op, tc.reg, tc.version, tc.change, err, tc.kind)
			}
		}
	}
}
