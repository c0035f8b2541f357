package interceptors

import (
	"context"
	"testing"
)

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1")
	userID, ok := GetUserID(ctx)
	if !ok || userID != "user-1" {
		t.Errorf("GetUserID = %q, %v; want %q, true", userID, ok, "user-1")
	}
}

func TestGetUserID_NotSet(t *testing.T) {
	if userID, ok := GetUserID(context.Background()); ok || userID != "" {
		t.Errorf("GetUserID = %q, %v; want empty, false", userID, ok)
	}
}

func TestGetUserID_EmptyIsUnset(t *testing.T) {
	if _, ok := GetUserID(WithIdentity(context.Background(), "")); ok {
		t.Error("empty user_id should report not set")
	}
}

func TestWithIdentity_Overrides(t *testing.T) {
	ctx := WithIdentity(WithIdentity(context.Background(), "user-1"), "user-2")
	if userID, _ := GetUserID(ctx); userID != "user-2" {
		t.Errorf("GetUserID = %q, want %q", userID, "user-2")
	}
}
