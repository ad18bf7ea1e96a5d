package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserJSON_OmitsSecrets(t *testing.T) {
	t.Parallel()

	u := User{
		ID:           "u1",
		Name:         "Ann",
		Email:        "ann@x.com",
		Age:          30,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Avatar:       []byte{0xff, 0xd8},
		Tokens:       []SessionToken{{UserID: "u1", Token: "tok-1"}},
		CreatedAt:    time.Now(),
	}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)

	for _, leak := range []string{"passwordHash", "PasswordHash", "$2a$10$", "tok-1", "avatar", "Avatar"} {
		if strings.Contains(s, leak) {
			t.Fatalf("serialized user leaks %q: %s", leak, s)
		}
	}
	for _, want := range []string{`"id":"u1"`, `"email":"ann@x.com"`, `"name":"Ann"`, `"age":30`} {
		if !strings.Contains(s, want) {
			t.Fatalf("serialized user missing %s: %s", want, s)
		}
	}
}
