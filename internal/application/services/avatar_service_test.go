package services_test

import (
	"context"
	"errors"
	"testing"

	impl "github.com/henzogomes/git-shame/internal/application/services"
	"github.com/henzogomes/git-shame/internal/core/domain/roast"
)

type backfillCacheMock struct {
	cacheMock
	missingFn  func(ctx context.Context) ([]string, error)
	backfillFn func(ctx context.Context, username, avatarURL string) (int, error)
}

func (m *backfillCacheMock) UsernamesMissingAvatar(ctx context.Context) ([]string, error) {
	if m.missingFn != nil {
		return m.missingFn(ctx)
	}
	return nil, nil
}
func (m *backfillCacheMock) BackfillAvatar(ctx context.Context, username, avatarURL string) (int, error) {
	if m.backfillFn != nil {
		return m.backfillFn(ctx, username, avatarURL)
	}
	return 0, nil
}

type avatarFetcherMock struct {
	fetcherMock
	fetchAvatarFn func(ctx context.Context, username string) (string, error)
}

func (m *avatarFetcherMock) FetchAvatarURL(ctx context.Context, username string) (string, error) {
	if m.fetchAvatarFn != nil {
		return m.fetchAvatarFn(ctx, username)
	}
	return "", nil
}

func TestRefreshMissing_SkipsFailedUsers(t *testing.T) {
	cache := &backfillCacheMock{
		missingFn: func(ctx context.Context) ([]string, error) {
			return []string{"alpha", "broken", "beta"}, nil
		},
		backfillFn: func(ctx context.Context, username, avatarURL string) (int, error) {
			if username == "alpha" {
				return 2, nil
			}
			return 1, nil
		},
	}
	fetcher := &avatarFetcherMock{fetchAvatarFn: func(ctx context.Context, username string) (string, error) {
		if username == "broken" {
			return "", errors.New("upstream 500")
		}
		return "https://a/" + username + ".png", nil
	}}

	svc := impl.NewAvatarService(cache, fetcher, quietLogger())
	report, err := svc.RefreshMissing(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if report.UniqueUsersUpdated != 3 {
		t.Fatalf("expected 3 candidate users, got %d", report.UniqueUsersUpdated)
	}
	if report.TotalRecordsUpdated != 3 {
		t.Fatalf("expected 3 updated records, got %d", report.TotalRecordsUpdated)
	}
	if len(report.Updates) != 2 {
		t.Fatalf("expected 2 successful updates, got %d", len(report.Updates))
	}
	want := []roast.AvatarBackfillUpdate{
		{Username: "alpha", UpdatedCount: 2, AvatarURL: "https://a/alpha.png"},
		{Username: "beta", UpdatedCount: 1, AvatarURL: "https://a/beta.png"},
	}
	for i, u := range want {
		if report.Updates[i] != u {
			t.Fatalf("update %d mismatch: got %+v want %+v", i, report.Updates[i], u)
		}
	}
}

func TestRefreshMissing_ListFailure(t *testing.T) {
	cache := &backfillCacheMock{missingFn: func(ctx context.Context) ([]string, error) {
		return nil, errors.New("connection refused")
	}}
	svc := impl.NewAvatarService(cache, &avatarFetcherMock{}, quietLogger())
	if _, err := svc.RefreshMissing(context.Background()); err == nil {
		t.Fatalf("expected listing failure to surface")
	}
}
