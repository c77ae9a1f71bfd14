package main

import (
	"context"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ascai/internal/config"
	"ascai/internal/db"
	"ascai/internal/model"
	"ascai/internal/repository"
)

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	seedAdmin(ctx, gormDB)
	seedBadges(gormDB)
	seedEventCategories(gormDB)
	seedNewsCategories(gormDB)
	seedForumCategories(gormDB)
	seedSettings(ctx, gormDB)

	log.Println("Seed complete")
}

// seedAdmin creates the initial admin account. The password comes from
// ADMIN_PASSWORD; an existing account with the admin email is left alone.
func seedAdmin(ctx context.Context, gormDB *gorm.DB) {
	email := envOr("ADMIN_EMAIL", "admin@ascai.example.org")
	password := envOr("ADMIN_PASSWORD", "admin-change-me")

	users := repository.NewUserRepository(gormDB)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		log.Printf("Admin %s already exists, skipping", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := &model.User{
		Email:        email,
		FirstName:    "ASCAI",
		LastName:     "Admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	log.Printf("Created admin %s", email)
}

func seedBadges(gormDB *gorm.DB) {
	badges := []model.MemberBadge{
		{Name: "Active Member", Description: "Membership in good standing", Category: model.BadgeMembership},
		{Name: "Verified Member", Description: "Identity confirmed by the board", Category: model.BadgeMembership},
		{Name: "One Year Member", Description: "A full year with the association", Category: model.BadgeMembership},
		{Name: "Alumni", Description: "Graduated and still with us", Category: model.BadgeMembership},
	}
	for i := range badges {
		if err := gormDB.Where(model.MemberBadge{Name: badges[i].Name}).FirstOrCreate(&badges[i]).Error; err != nil {
			log.Fatalf("Failed to seed badge %q: %v", badges[i].Name, err)
		}
	}
	log.Printf("Seeded %d badges", len(badges))
}

func seedEventCategories(gormDB *gorm.DB) {
	categories := []model.EventCategory{
		{Name: "Social", Slug: "social", Description: "Get-togethers and parties", Color: "#2D9CDB"},
		{Name: "Academic", Slug: "academic", Description: "Talks, workshops and study sessions", Color: "#27AE60"},
		{Name: "Cultural", Slug: "cultural", Description: "Cultural celebrations", Color: "#F2994A"},
		{Name: "Sports", Slug: "sports", Description: "Tournaments and training", Color: "#EB5757"},
	}
	for i := range categories {
		if err := gormDB.Where(model.EventCategory{Slug: categories[i].Slug}).FirstOrCreate(&categories[i]).Error; err != nil {
			log.Fatalf("Failed to seed event category %q: %v", categories[i].Name, err)
		}
	}
	log.Printf("Seeded %d event categories", len(categories))
}

func seedNewsCategories(gormDB *gorm.DB) {
	categories := []model.NewsCategory{
		{Name: "Announcements", Slug: "announcements", Description: "Official association news"},
		{Name: "Community", Slug: "community", Description: "Member stories and updates"},
		{Name: "Opportunities", Slug: "opportunities", Description: "Scholarships, grants and calls"},
	}
	for i := range categories {
		if err := gormDB.Where(model.NewsCategory{Slug: categories[i].Slug}).FirstOrCreate(&categories[i]).Error; err != nil {
			log.Fatalf("Failed to seed news category %q: %v", categories[i].Name, err)
		}
	}
	log.Printf("Seeded %d news categories", len(categories))
}

func seedForumCategories(gormDB *gorm.DB) {
	categories := []model.ForumCategory{
		{Name: "General", Slug: "general", Description: "Anything goes", SortOrder: 1, IsActive: true, ViewRole: model.RolePublic, PostRole: model.RoleMember},
		{Name: "Study Help", Slug: "study-help", Description: "Courses, exams and university life", SortOrder: 2, IsActive: true, ViewRole: model.RolePublic, PostRole: model.RoleMember},
		{Name: "Housing", Slug: "housing", Description: "Rooms, flats and subletting", SortOrder: 3, IsActive: true, ViewRole: model.RoleMember, PostRole: model.RoleMember},
		{Name: "Board Room", Slug: "board-room", Description: "Internal board discussions", SortOrder: 4, IsActive: true, ViewRole: model.RoleBoard, PostRole: model.RoleBoard},
	}
	for i := range categories {
		if err := gormDB.Where(model.ForumCategory{Slug: categories[i].Slug}).FirstOrCreate(&categories[i]).Error; err != nil {
			log.Fatalf("Failed to seed forum category %q: %v", categories[i].Name, err)
		}
	}
	log.Printf("Seeded %d forum categories", len(categories))
}

func seedSettings(ctx context.Context, gormDB *gorm.DB) {
	members := repository.NewMemberRepository(gormDB)
	settings, err := members.LoadSettings(ctx)
	if err != nil {
		log.Fatalf("Failed to seed subscription settings: %v", err)
	}
	log.Printf("Subscription settings ready (default duration %d years)", settings.DefaultDurationYears)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
