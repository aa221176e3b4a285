package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"dashboard_sync/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return db, mock
}

var instanceCols = []string{"id", "name", "service_id", "api_token", "map_name", "restart_hours", "platform",
	"log_dir", "spawner_path", "gameplay_config_path", "channels", "created_at"}

func TestInstanceSQLite_Create_NormalizesAndEncodes(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewInstanceSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertInstanceSQL)).
		WithArgs("Chernarus 1", "svc-1", "tok", "chernarusplus", "[3,9,15]", "pc",
			"/logs", "/custom/spawner.json", "/cfggameplay.json",
			`{"combat":"c1","session":"c2","suicide":"","build":""}`,
			sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := repo.Create(testCtx(t), models.ManagedInstance{
		Name:               "  Chernarus 1 ",
		ServiceID:          "svc-1",
		APIToken:           "tok",
		MapName:            "chernarusplus",
		RestartHours:       []int{15, 3, 9, 9, 31, -1},
		Platform:           " PC ",
		LogDir:             "/logs",
		SpawnerPath:        "/custom/spawner.json",
		GameplayConfigPath: "/cfggameplay.json",
		Channels:           models.Channels{Combat: "c1", Session: "c2"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 11 {
		t.Fatalf("want id 11, got %d", id)
	}
}

func TestInstanceSQLite_Create_PropagatesError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewInstanceSQLite(db)

	mock.ExpectExec("INSERT INTO instances").WillReturnError(errors.New("disk full"))

	_, err := repo.Create(testCtx(t), models.ManagedInstance{Name: "x"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestInstanceSQLite_Get(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewInstanceSQLite(db)
		mock.ExpectQuery(regexp.QuoteMeta(selectInstanceColumns + ` WHERE id = ?`)).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(instanceCols).AddRow(
				3, "srv", "svc", "tok", "enoch", "[6,18]", "xbox",
				"/logs", "/sp.json", "/cfg.json", `{"combat":"a","build":"b"}`, created))

		inst, err := repo.Get(testCtx(t), 3)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if inst == nil || inst.ID != 3 || inst.MapName != "enoch" || inst.Platform != "xbox" {
			t.Fatalf("unexpected instance %+v", inst)
		}
		if len(inst.RestartHours) != 2 || inst.RestartHours[1] != 18 {
			t.Fatalf("restart hours: %v", inst.RestartHours)
		}
		if inst.Channels.Combat != "a" || inst.Channels.Build != "b" {
			t.Fatalf("channels: %+v", inst.Channels)
		}
	})

	t.Run("not found returns nil nil", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewInstanceSQLite(db)
		mock.ExpectQuery("SELECT id, name").WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

		inst, err := repo.Get(testCtx(t), 99)
		if err != nil || inst != nil {
			t.Fatalf("want nil,nil got %+v,%v", inst, err)
		}
	})

	t.Run("corrupt hours json", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewInstanceSQLite(db)
		mock.ExpectQuery("SELECT id, name").WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(instanceCols).AddRow(
				4, "srv", "svc", "tok", "", "not-json", "pc", "/l", "/s", "", "{}", created))

		if _, err := repo.Get(testCtx(t), 4); err == nil {
			t.Fatalf("expected decode error")
		}
	})
}

func TestInstanceSQLite_List(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewInstanceSQLite(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectInstanceColumns + ` ORDER BY id ASC`)).
		WillReturnRows(sqlmock.NewRows(instanceCols).
			AddRow(1, "a", "s1", "t1", "", "[]", "pc", "/l", "/s", "", "{}", now).
			AddRow(2, "b", "s2", "t2", "", "[0]", "ps", "/l", "/s", "", "{}", now))

	got, err := repo.List(testCtx(t))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].RestartHours[0] != 0 {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestNormalizeHours(t *testing.T) {
	t.Parallel()

	got := normalizeHours([]int{23, 0, 23, 24, -3, 12})
	want := []int{0, 12, 23}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
