package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"task-manager/internal/core/auth"
	"task-manager/internal/domain"
)

var errDup = errors.New("UNIQUE constraint failed: users.email")

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*domain.User // id → user
	tokens      map[string][]string     // userID → tokens
	failCascade bool
	updateCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}, tokens: map[string][]string{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
		if e.Email == u.Email {
			return errDup
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	for id, e := range f.users {
		if id != u.ID && e.Email == u.Email {
			return errDup
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) AppendToken(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeUserRepo) RemoveToken(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.tokens[userID][:0]
	for _, t := range f.tokens[userID] {
		if t != token {
			kept = append(kept, t)
		}
	}
	f.tokens[userID] = kept
	return nil
}

func (f *fakeUserRepo) ClearTokens(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = nil
	return nil
}

func (f *fakeUserRepo) HasToken(_ context.Context, userID, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens[userID] {
		if t == token {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) DeleteCascade(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCascade {
		return false, errors.New("cascade write failed")
	}
	if _, ok := f.users[userID]; !ok {
		return false, nil
	}
	delete(f.users, userID)
	delete(f.tokens, userID)
	return true, nil
}

type fakeMailer struct {
	welcome chan string
	cancel  chan string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{welcome: make(chan string, 4), cancel: make(chan string, 4)}
}

func (m *fakeMailer) SendWelcome(email, _ string) error      { m.welcome <- email; return nil }
func (m *fakeMailer) SendCancellation(email, _ string) error { m.cancel <- email; return nil }

func waitMail(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("mail recipient: got %q want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected mail to %q, none arrived", want)
	}
}

func noMail(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected mail to %q", got)
	default:
	}
}

func newAccountFixture() (*AccountService, *fakeUserRepo, *fakeMailer, *auth.JWTer) {
	users := newFakeUserRepo()
	mailer := newFakeMailer()
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "task-manager"}
	svc := NewAccountService(users, jwter, mailer,
		func(err error) bool { return errors.Is(err, errDup) }, zap.NewNop())
	return svc, users, mailer, jwter
}

func validRegister() RegisterInput {
	return RegisterInput{Name: "Ann", Email: "ann@x.com", Age: 30, Password: "secret1"}
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()
	svc, users, mailer, jwter := newAccountFixture()

	u, token, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	uid, err := jwter.Parse(token)
	if err != nil || uid != u.ID {
		t.Fatalf("token does not resolve to the new user: uid=%q err=%v", uid, err)
	}
	if ok, _ := users.HasToken(context.Background(), u.ID, token); !ok {
		t.Fatalf("issued token must be in the stored token set")
	}
	if u.PasswordHash == "secret1" || u.PasswordHash == "" {
		t.Fatalf("password must be stored hashed, got %q", u.PasswordHash)
	}
	waitMail(t, mailer.welcome, "ann@x.com")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAccountFixture()

	if _, _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	in := validRegister()
	in.Name = "Other"
	_, _, err := svc.Register(context.Background(), in)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate email: expected ErrValidation, got %v", err)
	}
}

func TestRegister_InvalidFields(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAccountFixture()

	cases := []struct {
		name string
		mod  func(*RegisterInput)
	}{
		{"empty name", func(in *RegisterInput) { in.Name = "  " }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"negative age", func(in *RegisterInput) { in.Age = -1 }},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }},
		{"password contains password", func(in *RegisterInput) { in.Password = "myPassWord1" }},
	}
	for _, tc := range cases {
		in := validRegister()
		tc.mod(&in)
		if _, _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestLogin_UniformFailure(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAccountFixture()

	if _, _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, errUnknown := svc.Login(context.Background(), "nobody@x.com", "secret1")
	_, _, errWrongPw := svc.Login(context.Background(), "ann@x.com", "wrongpw1")

	if !errors.Is(errUnknown, ErrAuthentication) || !errors.Is(errWrongPw, ErrAuthentication) {
		t.Fatalf("both failures must be ErrAuthentication: %v / %v", errUnknown, errWrongPw)
	}
	// 两种失败对调用方必须一字不差
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("failure modes distinguishable: %q vs %q", errUnknown.Error(), errWrongPw.Error())
	}
}

func TestLogin_AppendsTokenPerSession(t *testing.T) {
	t.Parallel()
	svc, users, _, _ := newAccountFixture()

	u, t0, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, t1, err := svc.Login(context.Background(), "ann@x.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, t2, err := svc.Login(context.Background(), "Ann@X.com ", "secret1") // 邮箱大小写/空白归一
	if err != nil {
		t.Fatalf("login with denormalized email: %v", err)
	}

	for _, tok := range []string{t0, t1, t2} {
		if ok, _ := users.HasToken(context.Background(), u.ID, tok); !ok {
			t.Fatalf("token %q missing from set; logins must append, not replace", tok)
		}
	}
}

func TestLogout_RemovesExactToken(t *testing.T) {
	t.Parallel()
	svc, users, _, _ := newAccountFixture()

	u, t0, _ := svc.Register(context.Background(), validRegister())
	_, t1, _ := svc.Login(context.Background(), "ann@x.com", "secret1")

	if err := svc.Logout(context.Background(), u.ID, t0); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ok, _ := users.HasToken(context.Background(), u.ID, t0); ok {
		t.Fatalf("logged-out token still in set")
	}
	if ok, _ := users.HasToken(context.Background(), u.ID, t1); !ok {
		t.Fatalf("other session revoked by single logout")
	}
	// 幂等：重复登出同一令牌不报错
	if err := svc.Logout(context.Background(), u.ID, t0); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
}

func TestLogoutAll_ClearsEverySession(t *testing.T) {
	t.Parallel()
	svc, users, _, _ := newAccountFixture()

	u, t0, _ := svc.Register(context.Background(), validRegister())
	_, t1, _ := svc.Login(context.Background(), "ann@x.com", "secret1")

	if err := svc.LogoutAll(context.Background(), u.ID); err != nil {
		t.Fatalf("logoutAll: %v", err)
	}
	for _, tok := range []string{t0, t1} {
		if ok, _ := users.HasToken(context.Background(), u.ID, tok); ok {
			t.Fatalf("token %q survived logoutAll", tok)
		}
	}
}

func TestUpdateUser_FieldAllowList(t *testing.T) {
	t.Parallel()
	svc, users, _, _ := newAccountFixture()

	u, _, _ := svc.Register(context.Background(), validRegister())
	before := users.updateCalls

	_, err := svc.UpdateUser(context.Background(), u.ID, u.ID, map[string]any{"role": "admin"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("disallowed field: expected ErrValidation, got %v", err)
	}
	if users.updateCalls != before {
		t.Fatalf("disallowed update reached the repository")
	}
}

func TestUpdateUser_ForeignIdentityIsNotFound(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAccountFixture()

	u, _, _ := svc.Register(context.Background(), validRegister())
	_, err := svc.UpdateUser(context.Background(), u.ID, "someone-else", map[string]any{"name": "Bob"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign id must look like NotFound, got %v", err)
	}
}

func TestUpdateUser_PasswordRehashed(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAccountFixture()

	u, _, _ := svc.Register(context.Background(), validRegister())
	updated, err := svc.UpdateUser(context.Background(), u.ID, u.ID, map[string]any{"password": "newsecret"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PasswordHash == u.PasswordHash || strings.Contains(updated.PasswordHash, "newsecret") {
		t.Fatalf("password change must produce a fresh hash")
	}
	if _, _, err := svc.Login(context.Background(), "ann@x.com", "newsecret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestDeleteUser_CascadeFailureKeepsUser(t *testing.T) {
	t.Parallel()
	svc, users, mailer, _ := newAccountFixture()

	u, _, _ := svc.Register(context.Background(), validRegister())
	waitMail(t, mailer.welcome, "ann@x.com")

	users.failCascade = true
	_, err := svc.DeleteUser(context.Background(), u.ID, u.ID)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("cascade failure: expected ErrInternal, got %v", err)
	}
	if got, _ := users.FindByID(context.Background(), u.ID); got == nil {
		t.Fatalf("user must remain after failed cascade so the delete can be retried")
	}
	noMail(t, mailer.cancel)
}

func TestDeleteUser_Success(t *testing.T) {
	t.Parallel()
	svc, users, mailer, _ := newAccountFixture()

	u, _, _ := svc.Register(context.Background(), validRegister())
	got, err := svc.DeleteUser(context.Background(), u.ID, u.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("deleted user mismatch")
	}
	if left, _ := users.FindByID(context.Background(), u.ID); left != nil {
		t.Fatalf("user still present after delete")
	}
	waitMail(t, mailer.cancel, "ann@x.com")
}
