package main

import (
	"fmt"
	"time"

	"github.com/quocanhngo/lostfound/internal/config"
	"github.com/quocanhngo/lostfound/internal/database"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/pkg/auth"
	"github.com/quocanhngo/lostfound/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	defer log.Sync()

	db, err := database.Open(cfg.DB.DSN(), true)
	if err != nil {
		log.Fatal("❌ Failed to connect to database", zap.Error(err))
	}
	// Force DB logging off to avoid noise
	db.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	log.Info("✅ Connected to Database")

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, 30*24*time.Hour)

	log.Info("🌱 Seeding users...")
	var users []model.User
	for i := 1; i <= 10; i++ {
		u := seedUser(db, log, i, i != 10)
		if u == nil {
			continue
		}
		users = append(users, *u)

		token, err := jwtManager.GenerateToken(u.ID, u.Name)
		if err != nil {
			log.Error("❌ Failed to sign token", zap.Error(err))
			continue
		}
		fmt.Printf("%s\t%s\tverified=%v\n\t%s\n", u.Name, u.ID, u.IsVerified(), token)
	}

	if len(users) >= 2 {
		seedItems(db, log, users[0], users[1])
	}

	log.Info("🎉 Seeding completed!")
}

// seedUser creates user<i> unless it exists. The last user stays unverified
// so broadcast filtering can be observed.
func seedUser(db *gorm.DB, log *zap.Logger, i int, verified bool) *model.User {
	email := fmt.Sprintf("user%d@lostfound.local", i)

	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return &existing
	}

	user := model.User{
		Name:   fmt.Sprintf("User Number %d", i),
		Email:  email,
		Avatar: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=user%d", i),
	}
	if verified {
		now := time.Now().UTC()
		user.EmailVerifiedAt = &now
	}

	if err := db.Create(&user).Error; err != nil {
		log.Error("❌ Failed to create user", zap.String("email", email), zap.Error(err))
		return nil
	}
	log.Info("✅ Created user", zap.String("email", email), zap.Bool("verified", verified))
	return &user
}

// seedItems posts a found report that a later lost report from the app will match
func seedItems(db *gorm.DB, log *zap.Logger, finder, loser model.User) {
	var count int64
	db.Model(&model.Item{}).Count(&count)
	if count > 0 {
		return
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	items := []model.Item{
		{
			UserID: finder.ID, Kind: model.ItemKindFound, Title: "Black backpack near the library",
			Category: "Bag", Color: "Black", Brand: "Samsonite", Location: "Main Library",
			OccurredAt: yesterday, Status: model.ItemStatusActive,
		},
		{
			UserID: loser.ID, Kind: model.ItemKindLost, Title: "Lost my silver phone",
			Category: "Phone", Color: "Silver", Brand: "Apple", Location: "Cafeteria",
			OccurredAt: yesterday, Status: model.ItemStatusActive,
		},
	}

	for i := range items {
		if err := db.Omit("User").Create(&items[i]).Error; err != nil {
			log.Error("❌ Failed to create item", zap.Error(err))
			continue
		}
		log.Info("✅ Created item", zap.String("title", items[i].Title), zap.String("kind", string(items[i].Kind)))
	}
}
