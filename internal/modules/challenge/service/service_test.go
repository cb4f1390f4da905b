package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"greenhouse.org/growersplatform/internal/entity"
	challengeDto "greenhouse.org/growersplatform/internal/modules/challenge/dto"
	"greenhouse.org/growersplatform/internal/modules/challenge/feed"
	"greenhouse.org/growersplatform/internal/modules/challenge/repository"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
)

type chanMailer chan mailer.Message

func (m chanMailer) Send(_ context.Context, msg mailer.Message) error {
	m <- msg
	return nil
}

func newService(t *testing.T) (ChallengeService, chanMailer, *entity.User) {
	t.Helper()
	db := testutil.SQLite(t)
	mail := make(chanMailer, 4)
	svc := NewChallengeService(repository.NewChallengeRepository(db), feed.NewMemoryFeed(), mail, "board@growers.test", logger.Nop())
	return svc, mail, testutil.SeedUser(t, db, "grower", entity.RoleMember)
}

func TestSubmitPublishesAndNotifies(t *testing.T) {
	svc, mail, user := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live, stop, err := svc.Feed().Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	res, err := svc.Submit(ctx, user.ID, challengeDto.CreateChallengeInput{
		Text:     "  Finding seasonal labor for <b>spring</b> transplanting  ",
		Category: " Labor ",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Text != "Finding seasonal labor for spring transplanting" || res.Category != "labor" || res.Flag != "none" {
		t.Fatalf("unexpected response %+v", res)
	}
	if res.Submitter.Username != "grower" {
		t.Fatalf("submitter = %+v", res.Submitter)
	}

	select {
	case raw := <-live:
		var got challengeDto.ChallengeResponse
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode feed payload: %v", err)
		}
		if got.ID != res.ID {
			t.Fatalf("feed id = %s, want %s", got.ID, res.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed message")
	}

	select {
	case msg := <-mail:
		if msg.To != "board@growers.test" || !strings.Contains(msg.HTMLBody, "spring transplanting") {
			t.Fatalf("unexpected email %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("admin email not sent")
	}
}

func TestSubmitRejectsShortText(t *testing.T) {
	svc, _, user := newService(t)
	_, err := svc.Submit(context.Background(), user.ID, challengeDto.CreateChallengeInput{Text: "<i>too</i>      short"})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestFlagFilterAndExport(t *testing.T) {
	svc, _, user := newService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, text := range []string{"Energy bills doubled this winter", "Whitefly resistance to neonics", "Need a reliable tomato buyer"} {
		res, err := svc.Submit(ctx, user.ID, challengeDto.CreateChallengeInput{Text: text})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, res.ID)
	}

	flagged, err := svc.SetFlag(ctx, ids[1], "important")
	if err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	if flagged.Flag != "important" {
		t.Fatalf("flag = %s", flagged.Flag)
	}
	if _, err := svc.SetFlag(ctx, ids[0], "urgent"); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("bad flag err = %v", err)
	}
	if _, err := svc.SetFlag(ctx, uuid.New(), "reviewed"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing challenge err = %v", err)
	}

	page, err := svc.List(ctx, challengeDto.ListChallengesQuery{Flag: "important"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Meta.TotalItems != 1 || page.Data[0].ID != ids[1] {
		t.Fatalf("filtered list = %+v", page.Data)
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf, challengeDto.ListChallengesQuery{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Challenges")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("export rows = %d, want header + 3", len(rows))
	}
	if rows[1][6] != "Need a reliable tomato buyer" {
		t.Fatalf("export not newest first: %v", rows[1])
	}
}
