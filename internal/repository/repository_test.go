package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
)

// stores runs fn against every backend.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) {
		ctx := context.Background()
		db, err := Open(ctx, Config{Driver: "sqlite", DSN: ":memory:"}, nil)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { db.Close(nil) })
		if err := Migrate(ctx, db, nil); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		fn(t, NewSQLStore(db, nil))
	})
}

func newRegulation(id string, updated time.Time) *entity.Regulation {
	return &entity.Regulation{
		ID:     id,
		Title:  "GDPR " + id,
		Status: constants.RegulationStatusPending,
		Versions: []entity.Version{{
			ID:         "v1",
			Label:      "2016",
			UploadDate: updated,
			FileName:   "gdpr.pdf",
			StorageKey: "2016-04-27_00:00:00.000000_gdpr.pdf",
			PageCount:  3,
			Changes:    []entity.ChangeRecord{},
		}},
		Comments:    []entity.Comment{},
		VersionSeq:  1,
		CreatedAt:   updated,
		LastUpdated: updated,
	}
}

func TestRegulationLifecycle(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		reg := newRegulation("r1", now)

		if err := s.Regulations.Create(ctx, reg); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if reg.Revision != 1 {
			t.Errorf("revision after create = %d", reg.Revision)
		}

		got, err := s.Regulations.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Title != reg.Title || len(got.Versions) != 1 || got.Versions[0].StorageKey != reg.Versions[0].StorageKey {
			t.Errorf("round trip mismatch: %#v", got)
		}

		got.Status = constants.RegulationStatusValidated
		if err := s.Regulations.Update(ctx, got, 1); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Revision != 2 {
			t.Errorf("revision after update = %d", got.Revision)
		}

		again, _ := s.Regulations.Get(ctx, "r1")
		if again.Status != constants.RegulationStatusValidated || again.Revision != 2 {
			t.Errorf("update not persisted: %v rev %d", again.Status, again.Revision)
		}

		if err := s.Regulations.Delete(ctx, "r1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Regulations.Get(ctx, "r1"); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Get after delete err = %v", err)
		}
		if err := s.Regulations.Delete(ctx, "r1"); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("second Delete err = %v", err)
		}
	})
}

func TestRegulationUpdateIsCompareAndSwap(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		reg := newRegulation("r1", time.Now().UTC())
		if err := s.Regulations.Create(ctx, reg); err != nil {
			t.Fatal(err)
		}

		first, _ := s.Regulations.Get(ctx, "r1")
		second, _ := s.Regulations.Get(ctx, "r1")

		first.Title = "winner"
		if err := s.Regulations.Update(ctx, first, first.Revision); err != nil {
			t.Fatalf("first Update: %v", err)
		}
		second.Title = "loser"
		err := s.Regulations.Update(ctx, second, second.Revision)
		if !errors.Is(err, common.ErrConflict) {
			t.Fatalf("stale Update err = %v, want ErrConflict", err)
		}

		got, _ := s.Regulations.Get(ctx, "r1")
		if got.Title != "winner" {
			t.Errorf("title = %q, lost update", got.Title)
		}

		missing := newRegulation("nope", time.Now())
		if err := s.Regulations.Update(ctx, missing, 1); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Update of missing regulation err = %v, want ErrNotFound", err)
		}
	})
}

func TestRegulationListNewestFirst(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "new", "mid"} {
			offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
			if err := s.Regulations.Create(ctx, newRegulation(id, base.Add(offsets[i]))); err != nil {
				t.Fatal(err)
			}
		}
		list, err := s.Regulations.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, r := range list {
			ids = append(ids, r.ID)
		}
		if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
			t.Errorf("order = %v", ids)
		}
	})
}

func TestUsers(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		alice := &entity.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: "h", Role: constants.RoleAdmin, CreatedAt: now, UpdatedAt: now}
		if err := s.Users.Create(ctx, alice); err != nil {
			t.Fatalf("Create: %v", err)
		}
		dup := &entity.User{ID: "u2", Username: "alice", Email: "a2@example.com", PasswordHash: "h", Role: constants.RoleUser}
		if err := s.Users.Create(ctx, dup); !errors.Is(err, common.ErrConflict) {
			t.Errorf("duplicate username err = %v, want ErrConflict", err)
		}

		got, err := s.Users.GetByUsername(ctx, "alice")
		if err != nil || got.ID != "u1" || got.Role != constants.RoleAdmin {
			t.Fatalf("GetByUsername = %#v, %v", got, err)
		}

		got.Email = "alice@corp.example"
		if err := s.Users.Update(ctx, got); err != nil {
			t.Fatalf("Update: %v", err)
		}
		byID, _ := s.Users.GetByID(ctx, "u1")
		if byID.Email != "alice@corp.example" {
			t.Errorf("email = %q", byID.Email)
		}

		if err := s.Users.Delete(ctx, "u1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Users.GetByID(ctx, "u1"); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("GetByID after delete err = %v", err)
		}
	})
}

func TestNotifications(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"n1", "n2"} {
			n := &entity.Notification{ID: id, Title: "t" + id, Message: "m", RegulationID: "r1", VersionID: "v1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
			if err := s.Notifications.Create(ctx, n); err != nil {
				t.Fatal(err)
			}
		}

		for i := 0; i < 2; i++ {
			if err := s.Notifications.MarkSeen(ctx, "n1", "bob"); err != nil {
				t.Fatalf("MarkSeen: %v", err)
			}
		}
		if err := s.Notifications.MarkSeen(ctx, "missing", "bob"); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("MarkSeen(missing) err = %v", err)
		}

		list, err := s.Notifications.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 || list[0].ID != "n2" || list[1].ID != "n1" {
			t.Fatalf("list order wrong: %v", list)
		}
		if len(list[1].SeenBy) != 1 || !list[1].SeenByUser("bob") {
			t.Errorf("seen set = %v, want [bob]", list[1].SeenBy)
		}
		if list[0].SeenBy == nil || len(list[0].SeenBy) != 0 {
			t.Errorf("unseen notification seen set = %#v", list[0].SeenBy)
		}
	})
}
