package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/whisperwall/whisperwall/internal/testutil"
	"github.com/whisperwall/whisperwall/store"
)

func TestCreateThenVerify(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	created, err := s.CreateLocal(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("created user should have an id")
	}
	verified, err := s.VerifyLocal(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if verified.ID != created.ID || verified.Username != "alice" {
		t.Fatalf("verify returned the wrong user: %v", verified)
	}
}

func TestVerifyFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	_, err := s.CreateLocal(ctx, "alice", "pw1")
	if err != nil {
		t.Fatal(err)
	}
	_, wrongPassword := s.VerifyLocal(ctx, "alice", "pw2")
	_, unknownUser := s.VerifyLocal(ctx, "nobody", "pw1")
	if !errors.Is(wrongPassword, store.ErrInvalidCredentials) {
		t.Fatalf("wrong password should yield ErrInvalidCredentials, got %v", wrongPassword)
	}
	if !errors.Is(unknownUser, store.ErrInvalidCredentials) {
		t.Fatalf("unknown user should yield ErrInvalidCredentials, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatal("failure modes must not be distinguishable")
	}
}

func TestDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	_, err := s.CreateLocal(ctx, "alice", "pw1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.CreateLocal(ctx, "alice", "pw2")
	if !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("second create should yield ErrDuplicateUsername, got %v", err)
	}
	// the original registration must remain intact
	_, err = s.VerifyLocal(ctx, "alice", "pw1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.VerifyLocal(ctx, "alice", "pw2")
	if !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("duplicate registration must not change the password, got %v", err)
	}
}

func TestFindOrCreateByGoogleID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	first, err := s.FindOrCreateByGoogleID(ctx, "g-123")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.FindOrCreateByGoogleID(ctx, "g-123")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("find-or-create should be stable, got %v and %v", first.ID, second.ID)
	}
}

func TestFindOrCreateByGoogleIDConcurrent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	var wg sync.WaitGroup
	ids := make([]string, 4)
	errs := make([]error, 4)
	for i := range ids {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			u, err := s.FindOrCreateByGoogleID(ctx, "g-race")
			ids[slot] = u.ID
			errs[slot] = err
		}(i)
	}
	wg.Wait()
	for i := range ids {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("concurrent find-or-create produced distinct users: %v vs %v", ids[i], ids[0])
		}
	}
}

func TestSetSecretOverwrites(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	u, err := s.CreateLocal(ctx, "bob", "pw")
	if err != nil {
		t.Fatal(err)
	}
	err = s.SetSecret(ctx, u.ID, "hello")
	if err != nil {
		t.Fatal(err)
	}
	err = s.SetSecret(ctx, u.ID, "world")
	if err != nil {
		t.Fatal(err)
	}
	secrets, err := s.ListSecrets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(secrets) != 1 {
		t.Fatalf("expected one shared secret, got %v", len(secrets))
	}
	if secrets[0].Secret != "world" || secrets[0].DisplayIdentity != "bob" {
		t.Fatalf("unexpected listing entry: %+v", secrets[0])
	}
}

func TestSetSecretUnknownUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	err := s.SetSecret(ctx, "no-such-user", "hello")
	var notFound store.UserNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected UserNotFound, got %v", err)
	}
}

func TestListSecretsOrderAndAnonymity(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	local, err := s.CreateLocal(ctx, "carol", "pw")
	if err != nil {
		t.Fatal(err)
	}
	oauth, err := s.FindOrCreateByGoogleID(ctx, "g-456")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetSecret(ctx, local.ID, "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSecret(ctx, oauth.ID, "second"); err != nil {
		t.Fatal(err)
	}
	secrets, err := s.ListSecrets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(secrets) != 2 {
		t.Fatalf("expected two entries, got %v", len(secrets))
	}
	if secrets[0].Secret != "first" || secrets[1].Secret != "second" {
		t.Fatalf("listing should follow insertion order, got %+v", secrets)
	}
	if secrets[1].DisplayIdentity != "anonymous" {
		t.Fatalf("google-only accounts should list as anonymous, got %v", secrets[1].DisplayIdentity)
	}
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	s, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	err := s.AppendAudit(ctx, "bob", "logged in", "-")
	if err != nil {
		t.Fatal(err)
	}
	err = s.AppendAudit(ctx, "bob", "submitted a secret", "x")
	if err != nil {
		t.Fatal(err)
	}
	events, err := s.RecentAudit(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two events, got %v", len(events))
	}
	if events[0].Action != "submitted a secret" {
		t.Fatalf("events should come newest first, got %+v", events)
	}
}
