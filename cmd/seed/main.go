// seed inserts development sample data for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the dev admin (admin@example.org) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"community-cms/backend/internal/config"
	"community-cms/backend/internal/db"
	memberdomain "community-cms/backend/internal/member/domain"
	memberrepo "community-cms/backend/internal/member/repository"
	"community-cms/backend/internal/security"
	settingsdomain "community-cms/backend/internal/settings/domain"
	settingsrepo "community-cms/backend/internal/settings/repository"
	userdomain "community-cms/backend/internal/user/domain"
	userrepo "community-cms/backend/internal/user/repository"
)

const (
	adminEmail    = "admin@example.org"
	adminID       = "dev-admin-001"
	editorID      = "dev-editor-001"
	boardUser1ID  = "dev-board-001"
	boardUser2ID  = "dev-board-002"
	authorID      = "dev-author-001"
	boardMemberID = "dev-member-001"
)

type seedUser struct {
	id, email, name string
	role            userdomain.Role
	linkedMemberID  string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	members := memberrepo.NewPostgresRepository(conn)
	settings := settingsrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (admin@example.org exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()

	defaults := map[string]string{
		settingsdomain.KeyAuthorCanPublish:       "false",
		settingsdomain.KeyAuthorCanEditOthers:    "false",
		settingsdomain.KeyAuthorCanModerate:      "false",
		settingsdomain.KeyModeratorCanPublish:    "true",
		settingsdomain.KeyModeratorCanEditOthers: "false",
	}
	for _, key := range settingsdomain.OverrideKeys() {
		if err := settings.Upsert(ctx, &settingsdomain.Setting{
			Category: settingsdomain.CategoryPermissions, Key: key, Value: defaults[key], UpdatedAt: now,
		}); err != nil {
			log.Fatalf("seed setting %s: %v", key, err)
		}
	}
	if err := settings.Upsert(ctx, &settingsdomain.Setting{
		Category:  settingsdomain.CategoryMembership,
		Key:       settingsdomain.KeyApprovalThreshold,
		Value:     string(settingsdomain.ThresholdMajority),
		UpdatedAt: now,
	}); err != nil {
		log.Fatalf("seed approval threshold: %v", err)
	}

	seq, err := members.NextMemberNumberSeq(ctx)
	if err != nil {
		log.Fatalf("member number: %v", err)
	}
	if err := members.Create(ctx, &memberdomain.Member{
		ID:             boardMemberID,
		MemberNumber:   memberdomain.FormatMemberNumber(cfg.MemberNumberPrefix, now.Year(), seq),
		FirstName:      "Erika",
		LastName:       "Editor",
		Email:          "editor@example.org",
		MembershipType: memberdomain.MembershipTypeBoard,
		Status:         memberdomain.MemberStatusActive,
		JoinedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		log.Fatalf("create board member: %v", err)
	}

	// The editor holds board privileges only through the linked BOARD member.
	seedUsers := []seedUser{
		{adminID, adminEmail, "Dev Admin", userdomain.RoleAdmin, ""},
		{editorID, "editor@example.org", "Erika Editor", userdomain.RoleEditor, boardMemberID},
		{boardUser1ID, "board1@example.org", "Board One", userdomain.RoleBoard, ""},
		{boardUser2ID, "board2@example.org", "Board Two", userdomain.RoleBoard, ""},
		{authorID, "author@example.org", "Dev Author", userdomain.RoleAuthor, ""},
	}
	for _, su := range seedUsers {
		u := &userdomain.User{
			ID:             su.id,
			Email:          su.email,
			Name:           su.name,
			Role:           su.role,
			LinkedMemberID: su.linkedMemberID,
			Status:         userdomain.UserStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := u.Validate(); err != nil {
			log.Fatalf("user %s: %v", su.id, err)
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", su.id, err)
		}
	}

	log.Println("Seed completed: settings, 1 board member, 5 users.")

	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		log.Println("JWT_PRIVATE_KEY/JWT_PUBLIC_KEY not set; skipping dev access tokens.")
		return
	}
	tokens, err := security.NewTokenProviderFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, security.Options{
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.AccessTTL(),
	})
	if err != nil {
		log.Fatalf("token provider: %v", err)
	}
	for _, su := range seedUsers {
		token, expiresAt, err := tokens.IssueAccess(su.id)
		if err != nil {
			log.Fatalf("issue token for %s: %v", su.id, err)
		}
		fmt.Printf("%-10s %-20s expires %s\n  %s\n", su.role, su.email, expiresAt.Format(time.RFC3339), token)
	}
}
